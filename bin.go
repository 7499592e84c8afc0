package gst

import (
	"fmt"
	"sync"
)

// Bin is an element that owns child elements. State changes of a bin are
// applied to all children, sinks first.
type Bin struct {
	*Element

	mu       sync.Mutex
	children []*Element
	// children with asynchronous state change in progress
	asyncPending map[*Element]struct{}
	asyncWaiting bool
	asyncTarget  State
	eos          sinkSet
	streamStart  sinkSet
}

// sinkSet collects children that reported a stream event.
type sinkSet struct {
	reported map[*Element]bool
	posted   bool
}

func (s *sinkSet) reset() {
	s.reported = make(map[*Element]bool)
	s.posted = false
}

// binner is implemented by bin and pipeline.
type binner interface {
	bin() *Bin
}

func (b *Bin) bin() *Bin {
	return b
}

func binOf(e *Element) *Bin {
	if bi, ok := e.impl.(binner); ok {
		return bi.bin()
	}
	return nil
}

// BinOf returns the bin of provided element or nil if it's not a bin.
func BinOf(e *Element) *Bin {
	return binOf(e)
}

func newBin(e *Element) *Bin {
	e.flags |= FlagBin
	b := &Bin{
		Element:      e,
		asyncPending: make(map[*Element]struct{}),
	}
	b.eos.reset()
	b.streamStart.reset()
	return b
}

// NewBin creates an empty bin.
func NewBin(name string) (*Bin, error) {
	e, err := Make("bin", name)
	if err != nil {
		return nil, err
	}
	return BinOf(e), nil
}

// Add transfers ownership of elements to the bin. Elements must be in NULL
// state and must not have a parent. Names must be unique within the bin.
func (b *Bin) Add(elements ...*Element) error {
	for _, e := range elements {
		if err := b.add(e); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bin) add(e *Element) error {
	for p := b.Element; p != nil; {
		if p == e {
			return fmt.Errorf("add %s to %s: element is an ancestor: %w", e.Name(), b.Name(), ErrInvalidState)
		}
		if parent := p.Parent(); parent != nil {
			p = parent.Element
		} else {
			p = nil
		}
	}
	if s := e.targetState(); s != StateNull {
		return fmt.Errorf("add %s in %v to %s: %w", e.Name(), s, b.Name(), ErrInvalidState)
	}
	name := e.Name()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.children {
		if c.Name() == name {
			return fmt.Errorf("add %s to %s: %w", name, b.Name(), ErrDuplicateName)
		}
	}
	e.objMu.Lock()
	if e.parent != nil {
		e.objMu.Unlock()
		return fmt.Errorf("add %s to %s: %w", name, b.Name(), ErrHasParent)
	}
	if e.disposed {
		e.objMu.Unlock()
		return fmt.Errorf("add %s to %s: disposed: %w", name, b.Name(), ErrInvalidState)
	}
	e.parent = b
	e.objMu.Unlock()
	b.children = append(b.children, e)
	b.logger().Debugf("added %v", e)
	return nil
}

// Remove takes the element out of the bin and unlinks it. The element must
// be in NULL state. Ownership goes back to the caller.
func (b *Bin) Remove(e *Element) error {
	if s := e.targetState(); s != StateNull {
		return fmt.Errorf("remove %s in %v from %s: %w", e.Name(), s, b.Name(), ErrInvalidState)
	}
	b.mu.Lock()
	idx := -1
	for i, c := range b.children {
		if c == e {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return &NotFoundError{Kind: "element", Name: e.Name()}
	}
	b.children = append(b.children[:idx:idx], b.children[idx+1:]...)
	delete(b.asyncPending, e)
	delete(b.eos.reported, e)
	delete(b.streamStart.reported, e)
	b.mu.Unlock()

	for _, p := range e.Pads() {
		p.Unlink()
	}
	e.objMu.Lock()
	e.parent = nil
	e.objMu.Unlock()
	return nil
}

// Children returns direct children of the bin.
func (b *Bin) Children() []*Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Element(nil), b.children...)
}

// GetByName returns the element with provided name. Nested bins are
// searched depth-first. The bin keeps ownership of returned element.
func (b *Bin) GetByName(name string) (*Element, error) {
	if e := b.find(name); e != nil {
		return e, nil
	}
	return nil, &NotFoundError{Kind: "element", Name: name}
}

func (b *Bin) find(name string) *Element {
	for _, c := range b.Children() {
		if c.Name() == name {
			return c
		}
		if cb := binOf(c); cb != nil {
			if e := cb.find(name); e != nil {
				return e
			}
		}
	}
	return nil
}

func (b *Bin) hasSink() bool {
	for _, c := range b.Children() {
		if c.IsSink() {
			return true
		}
	}
	return false
}

// ChangeState sets all children to the target state of transition.
func (b *Bin) ChangeState(t StateChange) StateChangeReturn {
	children := b.sorted()
	b.mu.Lock()
	b.asyncPending = make(map[*Element]struct{})
	b.asyncWaiting = false
	if t == ReadyToPaused || t == PausedToReady {
		b.eos.reset()
		b.streamStart.reset()
	}
	b.mu.Unlock()

	var failed, noPreroll bool
	for _, c := range children {
		ret, err := c.SetState(t.To)
		switch ret {
		case StateChangeFailure:
			b.logger().WithError(err).Warnf("child %s failed %v", c.Name(), t)
			// going down continues with other children
			if t.upward() {
				return StateChangeFailure
			}
			failed = true
		case StateChangeAsync:
			if t.upward() {
				b.trackAsync(c)
			}
		case StateChangeNoPreroll:
			noPreroll = true
		}
	}
	if failed {
		return StateChangeFailure
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case noPreroll:
		return StateChangeNoPreroll
	case len(b.asyncPending) > 0:
		b.asyncWaiting = true
		b.asyncTarget = t.To
		return StateChangeAsync
	}
	return StateChangeSuccess
}

// trackAsync records child with async state change in progress, unless it
// was already committed.
func (b *Bin) trackAsync(c *Element) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.asyncInProgress() {
		b.asyncPending[c] = struct{}{}
	}
}

// asyncInProgress returns true if the element waits for an async commit.
func (e *Element) asyncInProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ret == StateChangeAsync && e.next != StateVoidPending && e.next != e.current
}

// handleMessage intercepts messages of children. Async done messages are
// consumed. End of stream and stream start are aggregated over sinks.
// Everything else goes up.
func (b *Bin) handleMessage(m *Message) {
	switch m.Type {
	case MessageAsyncDone:
		b.mu.Lock()
		_, tracked := b.asyncPending[m.src]
		delete(b.asyncPending, m.src)
		commit := tracked && b.asyncWaiting && len(b.asyncPending) == 0
		if commit {
			b.asyncWaiting = false
		}
		target := b.asyncTarget
		b.mu.Unlock()
		if commit {
			b.commitAsync(target)
		}
		return
	case MessageEOS:
		if b.collect(&b.eos, m.src) {
			b.logger().Debug("all sinks reached end of stream")
			b.Post(NewEOSMessage(b.Name()))
		}
		return
	case MessageStreamStart:
		if b.collect(&b.streamStart, m.src) {
			id, _ := m.ParseStreamStart()
			b.Post(NewStreamStartMessage(b.Name(), id))
		}
		return
	}
	b.Post(m)
}

// collect marks the child and returns true when all sinks are marked for
// the first time.
func (b *Bin) collect(s *sinkSet, child *Element) bool {
	children := b.Children()
	b.mu.Lock()
	defer b.mu.Unlock()
	s.reported[child] = true
	if s.posted {
		return false
	}
	for _, c := range children {
		if c.IsSink() && !s.reported[c] {
			return false
		}
	}
	s.posted = true
	return true
}

// sorted returns children in order of state changes: sinks first, then
// elements upstream of them.
func (b *Bin) sorted() []*Element {
	children := b.Children()
	in := make(map[*Element]bool, len(children))
	for _, c := range children {
		in[c] = true
	}
	downstream := func(e *Element) []*Element {
		var res []*Element
		for _, p := range e.Pads() {
			if p.Direction() != PadSrc {
				continue
			}
			if peer := p.Peer(); peer != nil {
				if d := peer.Element(); d != nil && d != e && in[d] {
					res = append(res, d)
				}
			}
		}
		return res
	}

	order := make([]*Element, 0, len(children))
	done := make(map[*Element]bool, len(children))
	for len(order) < len(children) {
		progress := false
		for _, c := range children {
			if done[c] {
				continue
			}
			ready := true
			for _, d := range downstream(c) {
				if !done[d] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, c)
				done[c] = true
				progress = true
			}
		}
		if progress {
			continue
		}
		// loop in the graph, break it at the first element
		for _, c := range children {
			if !done[c] {
				order = append(order, c)
				done[c] = true
				break
			}
		}
	}
	return order
}
