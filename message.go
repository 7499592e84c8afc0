package gst

import (
	"fmt"
	"math/bits"
	"strings"
	"sync/atomic"
	"time"
)

// MessageType is a bit mask of message kinds, so types can be combined
// into filters.
type MessageType uint32

// Message types.
const (
	MessageError MessageType = 1 << iota
	MessageTag
	MessageStateChanged
	MessageStreamStatus
	MessageDurationChanged
	MessageAsyncDone
	MessageStreamStart
	MessageEOS
	MessageWarning

	messageLast = MessageWarning
	// MessageAny matches all message types.
	MessageAny = messageLast<<1 - 1
)

var messageNames = [...]string{
	"error",
	"tag",
	"state-changed",
	"stream-status",
	"duration-changed",
	"async-done",
	"stream-start",
	"eos",
	"warning",
}

func (t MessageType) String() string {
	if t == 0 || t&^MessageAny != 0 {
		return fmt.Sprintf("MessageType(%#x)", uint32(t))
	}
	var names []string
	for i, name := range messageNames {
		if t&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// Code returns the position of a single message type.
func (t MessageType) Code() int {
	return bits.TrailingZeros32(uint32(t))
}

// MessageTypeFromCode converts position code into message type.
func MessageTypeFromCode(code int) (MessageType, error) {
	if code < 0 || code >= len(messageNames) {
		return 0, &CodeError{Type: "MessageType", Code: code}
	}
	return MessageType(1) << code, nil
}

// StreamStatus is the payload of stream status messages.
type StreamStatus int

// Stream statuses.
const (
	StreamStatusEnter StreamStatus = iota
	StreamStatusLeave
)

func (s StreamStatus) String() string {
	if s == StreamStatusEnter {
		return "enter"
	}
	return "leave"
}

// Tag is a named list of values.
type Tag struct {
	Name   string
	Values []string
}

// TagList is an ordered list of tags.
type TagList []Tag

// Add appends value to the named tag.
func (l TagList) Add(name, value string) TagList {
	for i := range l {
		if l[i].Name == name {
			l[i].Values = append(l[i].Values, value)
			return l
		}
	}
	return append(l, Tag{Name: name, Values: []string{value}})
}

// Get returns values of the named tag.
func (l TagList) Get(name string) ([]string, bool) {
	for _, t := range l {
		if t.Name == name {
			return t.Values, true
		}
	}
	return nil, false
}

func (l TagList) String() string {
	s := make([]string, 0, len(l))
	for _, t := range l {
		s = append(s, t.Name+"="+strings.Join(t.Values, ","))
	}
	return strings.Join(s, "; ")
}

var seqnum atomic.Uint64

// Message is posted by elements to report events to the application.
type Message struct {
	Type      MessageType
	Source    string
	Seqnum    uint64
	Timestamp time.Time

	src     *Element
	payload interface{}
}

type errorPayload struct {
	err   error
	debug string
}

type stateChangedPayload struct {
	old, new, pending State
}

type streamStatusPayload struct {
	status StreamStatus
	owner  string
}

func newMessage(t MessageType, source string, payload interface{}) *Message {
	return &Message{
		Type:      t,
		Source:    source,
		Seqnum:    seqnum.Add(1),
		Timestamp: time.Now(),
		payload:   payload,
	}
}

// NewErrorMessage returns message with error and debug details.
func NewErrorMessage(source string, err error, debug string) *Message {
	return newMessage(MessageError, source, errorPayload{err: err, debug: debug})
}

// NewWarningMessage returns message with warning and debug details.
func NewWarningMessage(source string, err error, debug string) *Message {
	return newMessage(MessageWarning, source, errorPayload{err: err, debug: debug})
}

// NewTagMessage returns message with tags.
func NewTagMessage(source string, tags TagList) *Message {
	return newMessage(MessageTag, source, tags)
}

// NewStateChangedMessage returns message about committed state.
func NewStateChangedMessage(source string, oldState, newState, pending State) *Message {
	return newMessage(MessageStateChanged, source, stateChangedPayload{old: oldState, new: newState, pending: pending})
}

// NewStreamStatusMessage returns message about streaming goroutine.
func NewStreamStatusMessage(source string, status StreamStatus, owner string) *Message {
	return newMessage(MessageStreamStatus, source, streamStatusPayload{status: status, owner: owner})
}

// NewDurationChangedMessage returns message about new stream duration.
func NewDurationChangedMessage(source string, d time.Duration) *Message {
	return newMessage(MessageDurationChanged, source, d)
}

// NewAsyncDoneMessage returns message about finished async transition.
func NewAsyncDoneMessage(source string) *Message {
	return newMessage(MessageAsyncDone, source, nil)
}

// NewStreamStartMessage returns message about started stream.
func NewStreamStartMessage(source, streamID string) *Message {
	return newMessage(MessageStreamStart, source, streamID)
}

// NewEOSMessage returns end of stream message.
func NewEOSMessage(source string) *Message {
	return newMessage(MessageEOS, source, nil)
}

func newStateChangedMessage(e *Element, oldState, newState, pending State) *Message {
	m := NewStateChangedMessage(e.Name(), oldState, newState, pending)
	m.src = e
	return m
}

func newAsyncDoneMessage(e *Element) *Message {
	m := NewAsyncDoneMessage(e.Name())
	m.src = e
	return m
}

// ParseError returns error and debug details of error message.
func (m *Message) ParseError() (err error, debug string, ok bool) {
	if m.Type != MessageError {
		return nil, "", false
	}
	p := m.payload.(errorPayload)
	return p.err, p.debug, true
}

// ParseWarning returns error and debug details of warning message.
func (m *Message) ParseWarning() (err error, debug string, ok bool) {
	if m.Type != MessageWarning {
		return nil, "", false
	}
	p := m.payload.(errorPayload)
	return p.err, p.debug, true
}

// ParseTag returns tags of tag message.
func (m *Message) ParseTag() (TagList, bool) {
	if m.Type != MessageTag {
		return nil, false
	}
	return m.payload.(TagList), true
}

// ParseStateChanged returns states of state changed message.
func (m *Message) ParseStateChanged() (oldState, newState, pending State, ok bool) {
	if m.Type != MessageStateChanged {
		return 0, 0, 0, false
	}
	p := m.payload.(stateChangedPayload)
	return p.old, p.new, p.pending, true
}

// ParseStreamStatus returns status and owner element of stream status
// message.
func (m *Message) ParseStreamStatus() (status StreamStatus, owner string, ok bool) {
	if m.Type != MessageStreamStatus {
		return 0, "", false
	}
	p := m.payload.(streamStatusPayload)
	return p.status, p.owner, true
}

// ParseDurationChanged returns new duration, negative if unknown.
func (m *Message) ParseDurationChanged() (time.Duration, bool) {
	if m.Type != MessageDurationChanged {
		return 0, false
	}
	return m.payload.(time.Duration), true
}

// ParseStreamStart returns stream id of stream start message.
func (m *Message) ParseStreamStart() (string, bool) {
	if m.Type != MessageStreamStart {
		return "", false
	}
	return m.payload.(string), true
}

// Payload returns the kind specific content of the message, nil for kinds
// without content.
func (m *Message) Payload() interface{} {
	return m.payload
}

func (m *Message) String() string {
	var details string
	switch m.Type {
	case MessageError, MessageWarning:
		p := m.payload.(errorPayload)
		details = fmt.Sprintf(" %v (%s)", p.err, p.debug)
	case MessageTag:
		details = " " + m.payload.(TagList).String()
	case MessageStateChanged:
		p := m.payload.(stateChangedPayload)
		details = fmt.Sprintf(" %v -> %v (pending %v)", p.old, p.new, p.pending)
	case MessageStreamStatus:
		p := m.payload.(streamStatusPayload)
		details = fmt.Sprintf(" %v %s", p.status, p.owner)
	case MessageDurationChanged:
		details = fmt.Sprintf(" %v", m.payload)
	case MessageStreamStart:
		details = " " + m.payload.(string)
	}
	return fmt.Sprintf("%d %v from %s%s", m.Seqnum, m.Type, m.Source, details)
}
