package gst

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/gst/metric"
)

// Flags describe capabilities of an element.
type Flags uint

// Element flags.
const (
	FlagSource Flags = 1 << iota
	FlagSink
	FlagBin
)

// ElementImpl is the behaviour of an element kind. ChangeState is called
// for every single step of a state change. Implementations return
// StateChangeAsync from READY_TO_PAUSED if they complete it later.
type ElementImpl interface {
	ChangeState(t StateChange) StateChangeReturn
}

// PadRequester is implemented by elements with request pads.
type PadRequester interface {
	RequestPad(dir PadDirection) (*Pad, error)
}

// Constructor creates the implementation of an element. It installs
// properties and adds pads to provided element.
type Constructor func(e *Element) (ElementImpl, error)

// Element is a named stateful node of a pipeline graph.
type Element struct {
	uid   xid.ID
	kind  string
	impl  ElementImpl
	props *properties
	meter metric.ResetFunc
	log   atomic.Pointer[logrus.Entry]
	// bus is set only for top-level pipelines.
	bus *Bus

	objMu    sync.RWMutex
	name     string
	flags    Flags
	parent   *Bin
	pads     []*Pad
	padSeq   int
	disposed bool

	// stateLock serializes state changes.
	stateLock sync.Mutex
	mu        sync.Mutex
	current   State
	next      State
	pending   State
	ret       StateChangeReturn
	failed    StateChange
	// stateCh is closed and replaced on every state commit.
	stateCh chan struct{}
}

type noopImpl struct{}

func (noopImpl) ChangeState(StateChange) StateChangeReturn {
	return StateChangeSuccess
}

// NewElement creates an element of provided kind with the constructor.
// Most users should use Make instead.
func NewElement(kind, name string, flags Flags, fn Constructor) (*Element, error) {
	e := newElement(kind, name, flags)
	if fn == nil {
		e.impl = noopImpl{}
		return e, nil
	}
	impl, err := fn(e)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", kind, err)
	}
	if impl == nil {
		impl = noopImpl{}
	}
	e.impl = impl
	return e, nil
}

func newElement(kind, name string, flags Flags) *Element {
	e := &Element{
		uid:     xid.New(),
		kind:    kind,
		name:    name,
		flags:   flags,
		props:   newProperties(),
		meter:   metric.Meter(kind),
		current: StateNull,
		ret:     StateChangeSuccess,
		stateCh: make(chan struct{}),
	}
	e.setLogger(getLogger())
	return e
}

func (e *Element) setLogger(l logrus.FieldLogger) {
	e.log.Store(l.WithFields(logrus.Fields{
		"element": e.Name(),
		"kind":    e.kind,
		"uid":     e.uid.String(),
	}))
}

func (e *Element) logger() *logrus.Entry {
	return e.log.Load()
}

// Name returns the element name.
func (e *Element) Name() string {
	e.objMu.RLock()
	defer e.objMu.RUnlock()
	return e.name
}

// SetName renames the element. Elements owned by a bin cannot be renamed.
func (e *Element) SetName(name string) error {
	e.objMu.Lock()
	if e.parent != nil {
		old := e.name
		e.objMu.Unlock()
		return &PropertyError{Element: old, Property: "name", Reason: ErrHasParent.Error()}
	}
	e.name = name
	e.objMu.Unlock()
	e.setLogger(getLogger())
	return nil
}

// Kind returns the factory name of the element.
func (e *Element) Kind() string {
	return e.kind
}

// UID returns globally unique id of the element.
func (e *Element) UID() string {
	return e.uid.String()
}

// Flags returns element capabilities.
func (e *Element) Flags() Flags {
	e.objMu.RLock()
	f := e.flags
	e.objMu.RUnlock()
	if b := binOf(e); b != nil && b.hasSink() {
		f |= FlagSink
	}
	return f
}

// IsSink returns true if element consumes data.
func (e *Element) IsSink() bool {
	return e.Flags()&FlagSink != 0
}

// IsSource returns true if element produces data.
func (e *Element) IsSource() bool {
	return e.Flags()&FlagSource != 0
}

// Parent returns the bin that owns the element.
func (e *Element) Parent() *Bin {
	e.objMu.RLock()
	defer e.objMu.RUnlock()
	return e.parent
}

// Impl returns the element implementation.
func (e *Element) Impl() ElementImpl {
	return e.impl
}

func (e *Element) String() string {
	return e.kind + ":" + e.Name()
}

// Post sends the message up to the bus of the pipeline. Messages of
// elements without pipeline are dropped.
func (e *Element) Post(m *Message) {
	if m.src == nil {
		m.src = e
	}
	e.objMu.RLock()
	p := e.parent
	e.objMu.RUnlock()
	switch {
	case p != nil:
		p.handleMessage(m)
	case e.bus != nil:
		e.bus.Post(m)
	default:
		e.logger().WithField("message", m.Type).Trace("no bus, message dropped")
	}
}

// PostError posts an error message.
func (e *Element) PostError(err error, debug string) {
	e.logger().WithError(err).Error(debug)
	e.Post(NewErrorMessage(e.Name(), err, debug))
}

// PostWarning posts a warning message.
func (e *Element) PostWarning(err error, debug string) {
	e.logger().WithError(err).Warn(debug)
	e.Post(NewWarningMessage(e.Name(), err, debug))
}

// State returns the current state without waiting.
func (e *Element) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// currentState returns current state and a channel that is closed on the
// next state commit.
func (e *Element) currentState() (State, <-chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.stateCh
}

// SetState requests transition to target state. Bins propagate the request
// to their children. The element passes through all intermediate states.
func (e *Element) SetState(target State) (StateChangeReturn, error) {
	if target < StateNull || target > StatePlaying {
		return StateChangeFailure, &CodeError{Type: "State", Code: int(target)}
	}
	e.stateLock.Lock()
	defer e.stateLock.Unlock()
	if e.isDisposed() {
		return StateChangeFailure, fmt.Errorf("set state of %s: disposed: %w", e.Name(), ErrInvalidState)
	}
	e.logger().Debugf("set state %v", target)
	ret := e.setState(target)
	if ret == StateChangeFailure {
		e.mu.Lock()
		t := e.failed
		e.mu.Unlock()
		return ret, &StateChangeError{Element: e.Name(), Transition: t}
	}
	return ret, nil
}

// GetState waits until pending asynchronous transition is done or timeout
// expires. Negative timeout waits forever, zero timeout doesn't wait. It
// returns StateChangeAsync if the transition is still in progress.
func (e *Element) GetState(timeout time.Duration) (ret StateChangeReturn, current, pending State, err error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		e.mu.Lock()
		ret, current, pending = e.ret, e.current, e.pending
		failed, ch := e.failed, e.stateCh
		e.mu.Unlock()
		switch {
		case ret == StateChangeFailure:
			return ret, current, pending, &StateChangeError{Element: e.Name(), Transition: failed}
		case ret != StateChangeAsync || timeout == 0:
			return ret, current, pending, nil
		}
		select {
		case <-ch:
		case <-deadline:
			return ret, current, pending, nil
		}
	}
}

// SyncStateWithParent sets the element to the state of its parent.
func (e *Element) SyncStateWithParent() error {
	p := e.Parent()
	if p == nil {
		return fmt.Errorf("sync state of %s: no parent: %w", e.Name(), ErrInvalidState)
	}
	_, err := e.SetState(p.Element.targetState())
	return err
}

// targetState returns pending state or current if nothing is pending.
func (e *Element) targetState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending != StateVoidPending {
		return e.pending
	}
	return e.current
}

// setState runs the state change. Must be called with stateLock held.
func (e *Element) setState(target State) StateChangeReturn {
	e.mu.Lock()
	if e.ret == StateChangeFailure {
		e.next = StateVoidPending
		e.pending = StateVoidPending
		e.ret = StateChangeSuccess
	}
	current, next, oldPending := e.current, e.next, e.pending
	e.pending = target
	if oldPending != StateVoidPending {
		// upward changes and changes to the state that is in progress
		// complete asynchronously
		if oldPending <= target || next == target {
			e.ret = StateChangeAsync
			e.mu.Unlock()
			return StateChangeAsync
		}
		// async upward change is interrupted, continue from the state
		// it was heading to
		if next > target && e.ret == StateChangeAsync {
			current = next
			e.current = next
		}
	}
	next = current.step(target)
	e.next = next
	if current != target {
		e.ret = StateChangeAsync
	}
	e.mu.Unlock()
	return e.changeState(StateChange{From: current, To: next})
}

// changeState calls implementation for a single transition and continues
// towards pending state.
func (e *Element) changeState(t StateChange) StateChangeReturn {
	var ret StateChangeReturn
	switch {
	case t.From == t.To && binOf(e) == nil:
		ret = StateChangeSuccess
	default:
		e.activatePads(t)
		ret = e.impl.ChangeState(t)
	}
	e.logger().Debugf("%v: %v", t, ret)
	switch ret {
	case StateChangeFailure:
		e.abortState(t)
		return ret
	case StateChangeAsync:
		if t.upward() {
			return ret
		}
		return e.continueState(StateChangeSuccess)
	case StateChangeSuccess, StateChangeNoPreroll:
		return e.continueState(ret)
	}
	e.logger().Errorf("%v returned unknown result %v", t, ret)
	e.abortState(t)
	return StateChangeFailure
}

// continueState commits the transition in progress and starts the next
// one if pending state is not reached yet.
func (e *Element) continueState(ret StateChangeReturn) StateChangeReturn {
	e.mu.Lock()
	oldRet := e.ret
	e.ret = ret
	pending := e.pending
	if pending == StateVoidPending {
		e.mu.Unlock()
		return ret
	}
	oldState, oldNext := e.current, e.next
	e.current = oldNext
	if oldNext == pending {
		e.pending = StateVoidPending
		e.next = StateVoidPending
		e.notifyLocked()
		e.mu.Unlock()
		if oldState != oldNext || oldRet == StateChangeAsync {
			e.Post(newStateChangedMessage(e, oldState, oldNext, StateVoidPending))
		}
		return ret
	}
	next := oldNext.step(pending)
	e.next = next
	e.ret = StateChangeAsync
	e.notifyLocked()
	e.mu.Unlock()
	e.Post(newStateChangedMessage(e, oldState, oldNext, pending))
	return e.changeState(StateChange{From: oldNext, To: next})
}

// commitAsync completes asynchronous transition to s. It's called from
// streaming goroutines and message handlers without stateLock. If pending
// state is beyond s, the state change continues on a new goroutine.
func (e *Element) commitAsync(s State) bool {
	e.mu.Lock()
	if e.ret != StateChangeAsync || e.next != s || e.current == s {
		e.mu.Unlock()
		return false
	}
	old, pending := e.current, e.pending
	e.current = s
	if pending == s || pending == StateVoidPending {
		e.next = StateVoidPending
		e.pending = StateVoidPending
		e.ret = StateChangeSuccess
		pending = StateVoidPending
	}
	e.notifyLocked()
	e.mu.Unlock()

	e.logger().Debugf("committed %v", s)
	e.Post(newStateChangedMessage(e, old, s, pending))
	e.Post(newAsyncDoneMessage(e))
	if pending != StateVoidPending {
		go e.continueAsync()
	}
	return true
}

// continueAsync resumes the state change after asynchronous commit. It's a
// no-op if another state change took over in the meantime.
func (e *Element) continueAsync() {
	e.stateLock.Lock()
	defer e.stateLock.Unlock()
	e.mu.Lock()
	// committed state has current equal to next
	if e.ret != StateChangeAsync || e.next != e.current {
		e.mu.Unlock()
		return
	}
	if e.pending == e.current || e.pending == StateVoidPending {
		e.next = StateVoidPending
		e.pending = StateVoidPending
		e.ret = StateChangeSuccess
		e.notifyLocked()
		e.mu.Unlock()
		return
	}
	t := StateChange{From: e.current, To: e.current.step(e.pending)}
	e.next = t.To
	e.mu.Unlock()
	e.changeState(t)
}

func (e *Element) abortState(t StateChange) {
	e.mu.Lock()
	e.failed = t
	e.next = StateVoidPending
	e.pending = StateVoidPending
	e.ret = StateChangeFailure
	e.notifyLocked()
	e.mu.Unlock()
	e.logger().Warnf("%v failed", t)
}

func (e *Element) notifyLocked() {
	close(e.stateCh)
	e.stateCh = make(chan struct{})
}

// activatePads switches pads on the way between READY and PAUSED.
func (e *Element) activatePads(t StateChange) {
	switch t {
	case ReadyToPaused:
		for _, p := range e.Pads() {
			p.setActive(true)
		}
	case PausedToReady:
		for _, p := range e.Pads() {
			p.setActive(false)
		}
	}
}

func (e *Element) isDisposed() bool {
	e.objMu.RLock()
	defer e.objMu.RUnlock()
	return e.disposed
}

// Dispose releases the element. The element must be in NULL state and
// must not be owned by a bin. Bins dispose all their children.
func (e *Element) Dispose() error {
	if e.Parent() != nil {
		return fmt.Errorf("dispose %s: %w", e.Name(), ErrHasParent)
	}
	return e.dispose()
}

func (e *Element) dispose() error {
	e.stateLock.Lock()
	e.mu.Lock()
	current, pending := e.current, e.pending
	e.mu.Unlock()
	e.stateLock.Unlock()
	if current != StateNull || pending != StateVoidPending {
		return fmt.Errorf("dispose %s in %v: %w", e.Name(), current, ErrInvalidState)
	}
	var errs []error
	if b := binOf(e); b != nil {
		for _, c := range b.Children() {
			if err := c.dispose(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, p := range e.Pads() {
		p.Unlink()
	}
	e.objMu.Lock()
	e.disposed = true
	e.objMu.Unlock()
	e.logger().Debug("disposed")
	return errors.Join(errs...)
}
