package gst

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream is returned by sink endpoints when the stream is over
	// and no buffers are left.
	ErrEndOfStream = errors.New("end of stream")
	// ErrTimeout is returned when a timed wait has expired.
	ErrTimeout = errors.New("timeout")
	// ErrFlushing is matched by flow errors caused by a stopped element.
	ErrFlushing = errors.New("flushing")
	// ErrInvalidState is returned if method cannot be executed in the
	// current element state.
	ErrInvalidState = errors.New("invalid state")
	// ErrHasParent is returned if an element is already owned by a bin.
	ErrHasParent = errors.New("element already has a parent")
	// ErrDuplicateName is returned if a bin already has a child with the
	// same name.
	ErrDuplicateName = errors.New("duplicate element name")
	// ErrNotWritable is returned when a sealed or shared buffer is filled.
	ErrNotWritable = errors.New("buffer is not writable")
)

// FlowReturn is the result of passing data between pads.
type FlowReturn int

// Flow results. Negative values stop the data flow.
const (
	FlowOK            FlowReturn = 0
	FlowNotLinked     FlowReturn = -1
	FlowFlushing      FlowReturn = -2
	FlowEOS           FlowReturn = -3
	FlowNotNegotiated FlowReturn = -4
	FlowFailed        FlowReturn = -5
)

func (f FlowReturn) String() string {
	switch f {
	case FlowOK:
		return "ok"
	case FlowNotLinked:
		return "not-linked"
	case FlowFlushing:
		return "flushing"
	case FlowEOS:
		return "eos"
	case FlowNotNegotiated:
		return "not-negotiated"
	case FlowFailed:
		return "error"
	}
	return fmt.Sprintf("flow(%d)", int(f))
}

// fatal returns true for results that must be reported as errors.
func (f FlowReturn) fatal() bool {
	return f == FlowNotLinked || f < FlowEOS
}

// FlowError is returned when data couldn't be pushed or pulled.
type FlowError struct {
	Element string
	Flow    FlowReturn
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: flow %v", e.Element, e.Flow)
}

// Is allows to match flow errors with ErrFlushing and ErrEndOfStream.
func (e *FlowError) Is(target error) bool {
	switch target {
	case ErrFlushing:
		return e.Flow == FlowFlushing
	case ErrEndOfStream:
		return e.Flow == FlowEOS
	}
	return false
}

// ParseError is returned when a pipeline description cannot be built.
type ParseError struct {
	Description string
	Pos         int
	Msg         string
	Err         error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q at %d: %s: %v", e.Description, e.Pos, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %q at %d: %s", e.Description, e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when factory or element lookup fails.
type NotFoundError struct {
	// Kind is either "factory" or "element".
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// NegotiationError is returned when two elements cannot be linked.
type NegotiationError struct {
	Src    string
	Sink   string
	Reason string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("link %s to %s: %s", e.Src, e.Sink, e.Reason)
}

// StateChangeError is returned when an element failed a transition.
type StateChangeError struct {
	Element    string
	Transition StateChange
}

func (e *StateChangeError) Error() string {
	return fmt.Sprintf("%s: state change %v failed", e.Element, e.Transition)
}

// PropertyError is returned when a property cannot be set or read.
type PropertyError struct {
	Element  string
	Property string
	Reason   string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s: property %q: %s", e.Element, e.Property, e.Reason)
}

// CodeError is returned when an integer code doesn't map to any value of
// an enumeration.
type CodeError struct {
	Type string
	Code int
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("unknown %s code %d", e.Type, e.Code)
}
