package gst

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// PadDirection is the direction of data flow through a pad.
type PadDirection int

// Pad directions.
const (
	PadSrc PadDirection = iota
	PadSink
)

func (d PadDirection) String() string {
	if d == PadSrc {
		return "src"
	}
	return "sink"
}

// ChainFunc receives buffers on a sink pad. It takes ownership of the
// buffer.
type ChainFunc func(p *Pad, b *Buffer) FlowReturn

// EventFunc receives events on a pad. It returns false if the event was
// not handled.
type EventFunc func(p *Pad, ev *Event) bool

// Pad is a connection point of an element.
type Pad struct {
	name   string
	dir    PadDirection
	caps   *Caps
	proxy  bool
	active atomic.Bool

	mu      sync.RWMutex
	element *Element
	peer    *Pad
	chain   ChainFunc
	event   EventFunc
}

// NewPad creates a pad with template caps. Nil caps are ANY.
func NewPad(name string, dir PadDirection, caps *Caps) *Pad {
	return &Pad{
		name: name,
		dir:  dir,
		caps: caps,
	}
}

// Name returns the pad name.
func (p *Pad) Name() string {
	return p.name
}

// Direction returns the pad direction.
func (p *Pad) Direction() PadDirection {
	return p.dir
}

// Element returns the element that owns the pad.
func (p *Pad) Element() *Element {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.element
}

// SetChainFunc sets the buffer handler of sink pad.
func (p *Pad) SetChainFunc(fn ChainFunc) *Pad {
	p.mu.Lock()
	p.chain = fn
	p.mu.Unlock()
	return p
}

// SetEventFunc sets the event handler. Without handler, events on sink
// pads are forwarded to all source pads of the element.
func (p *Pad) SetEventFunc(fn EventFunc) *Pad {
	p.mu.Lock()
	p.event = fn
	p.mu.Unlock()
	return p
}

// SetProxyCaps makes caps queries on the pad go through the element to
// the peers of its other pads.
func (p *Pad) SetProxyCaps(proxy bool) *Pad {
	p.proxy = proxy
	return p
}

// SetCaps replaces template caps of the pad. It doesn't affect existing
// links.
func (p *Pad) SetCaps(c *Caps) {
	p.mu.Lock()
	p.caps = c
	p.mu.Unlock()
}

// Peer returns the linked pad.
func (p *Pad) Peer() *Pad {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.peer
}

// IsLinked returns true if the pad has a peer.
func (p *Pad) IsLinked() bool {
	return p.Peer() != nil
}

// IsActive returns true if the pad passes data.
func (p *Pad) IsActive() bool {
	return p.active.Load()
}

func (p *Pad) setActive(active bool) {
	p.active.Store(active)
}

func (p *Pad) String() string {
	if e := p.Element(); e != nil {
		return e.Name() + ":" + p.name
	}
	return p.name
}

// QueryCaps returns caps the pad can handle with the current links.
func (p *Pad) QueryCaps() *Caps {
	return p.queryCaps(map[*Pad]bool{})
}

func (p *Pad) queryCaps(visited map[*Pad]bool) *Caps {
	p.mu.RLock()
	caps, e := p.caps, p.element
	p.mu.RUnlock()
	if visited[p] || !p.proxy || e == nil {
		return caps.orAny()
	}
	visited[p] = true
	res := caps.orAny()
	for _, other := range e.Pads() {
		if other.dir == p.dir {
			continue
		}
		if peer := other.Peer(); peer != nil {
			res = res.Intersect(peer.queryCaps(visited))
		}
	}
	return res
}

// Link connects source pad p to sink pad sink.
func (p *Pad) Link(sink *Pad) error {
	if p.dir != PadSrc || sink.dir != PadSink {
		return &NegotiationError{Src: p.String(), Sink: sink.String(), Reason: "wrong pad direction"}
	}
	linkMu.Lock()
	defer linkMu.Unlock()
	if p.IsLinked() || sink.IsLinked() {
		return &NegotiationError{Src: p.String(), Sink: sink.String(), Reason: "pad already linked"}
	}
	src, dst := p.QueryCaps(), sink.QueryCaps()
	caps := src.Intersect(dst)
	if caps.IsEmpty() {
		return &NegotiationError{
			Src:    p.String(),
			Sink:   sink.String(),
			Reason: fmt.Sprintf("caps %v and %v do not intersect", src, dst),
		}
	}
	p.mu.Lock()
	p.peer = sink
	p.mu.Unlock()
	sink.mu.Lock()
	sink.peer = p
	sink.mu.Unlock()
	return nil
}

// Unlink disconnects the pad from its peer.
func (p *Pad) Unlink() {
	linkMu.Lock()
	defer linkMu.Unlock()
	p.mu.Lock()
	peer := p.peer
	p.peer = nil
	p.mu.Unlock()
	if peer != nil {
		peer.mu.Lock()
		peer.peer = nil
		peer.mu.Unlock()
	}
}

// linkMu serializes links, so two pads are always linked to each other.
var linkMu sync.Mutex

// Push seals the buffer and passes it to the peer pad. The buffer
// reference is transferred.
func (p *Pad) Push(b *Buffer) FlowReturn {
	b.Seal()
	if !p.IsActive() {
		b.Unref()
		return FlowFlushing
	}
	peer := p.Peer()
	if peer == nil {
		b.Unref()
		return FlowNotLinked
	}
	return peer.chainBuffer(b)
}

func (p *Pad) chainBuffer(b *Buffer) FlowReturn {
	if !p.IsActive() {
		b.Unref()
		return FlowFlushing
	}
	p.mu.RLock()
	fn := p.chain
	p.mu.RUnlock()
	if fn == nil {
		b.Unref()
		return FlowFailed
	}
	return fn(p, b)
}

// PushEvent sends the event to the peer pad.
func (p *Pad) PushEvent(ev *Event) bool {
	peer := p.Peer()
	if peer == nil {
		return false
	}
	return peer.SendEvent(ev)
}

// SendEvent handles the event on this pad.
func (p *Pad) SendEvent(ev *Event) bool {
	if !p.IsActive() {
		return false
	}
	p.mu.RLock()
	fn, e := p.event, p.element
	p.mu.RUnlock()
	if fn != nil {
		return fn(p, ev)
	}
	if p.dir == PadSink && e != nil {
		return e.ForwardEvent(ev)
	}
	return false
}

// AddPad adds the pad to the element.
func (e *Element) AddPad(p *Pad) error {
	e.objMu.Lock()
	defer e.objMu.Unlock()
	for _, other := range e.pads {
		if other.name == p.name {
			return fmt.Errorf("add pad %s to %s: %w", p.name, e.name, ErrDuplicateName)
		}
	}
	p.mu.Lock()
	if p.element != nil {
		p.mu.Unlock()
		return fmt.Errorf("add pad %s to %s: %w", p.name, e.name, ErrHasParent)
	}
	p.element = e
	p.mu.Unlock()
	e.pads = append(e.pads, p)
	return nil
}

// RemovePad unlinks the pad and removes it from the element.
func (e *Element) RemovePad(p *Pad) {
	p.Unlink()
	e.objMu.Lock()
	defer e.objMu.Unlock()
	for i, other := range e.pads {
		if other == p {
			e.pads = append(e.pads[:i:i], e.pads[i+1:]...)
			break
		}
	}
	p.mu.Lock()
	p.element = nil
	p.mu.Unlock()
}

// Pads returns all pads of the element.
func (e *Element) Pads() []*Pad {
	e.objMu.RLock()
	defer e.objMu.RUnlock()
	return append([]*Pad(nil), e.pads...)
}

// StaticPad returns the pad with provided name or nil.
func (e *Element) StaticPad(name string) *Pad {
	for _, p := range e.Pads() {
		if p.name == name {
			return p
		}
	}
	return nil
}

// ForwardEvent pushes the event on every source pad. It returns true if
// any peer handled the event or the element has no source pads.
func (e *Element) ForwardEvent(ev *Event) bool {
	handled, hasSrc := false, false
	for _, p := range e.Pads() {
		if p.dir != PadSrc {
			continue
		}
		hasSrc = true
		if p.PushEvent(ev) {
			handled = true
		}
	}
	return handled || !hasSrc
}

// nextPadName returns a name for a request pad.
func (e *Element) nextPadName(prefix string) string {
	e.objMu.Lock()
	defer e.objMu.Unlock()
	name := fmt.Sprintf("%s_%d", prefix, e.padSeq)
	e.padSeq++
	return name
}

// freePad returns unlinked pad of provided direction, requesting one if
// the element supports it.
func (e *Element) freePad(dir PadDirection) (p *Pad, requested bool, err error) {
	for _, p := range e.Pads() {
		if p.dir == dir && !p.IsLinked() {
			return p, false, nil
		}
	}
	r, ok := e.impl.(PadRequester)
	if !ok {
		return nil, false, nil
	}
	if p, err = r.RequestPad(dir); err != nil || p == nil {
		return nil, false, err
	}
	if err = e.AddPad(p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Link links a free source pad of src to a free sink pad of sink. Both
// elements must have the same parent.
func Link(src, sink *Element) error {
	if src.Parent() != sink.Parent() {
		return &NegotiationError{Src: src.Name(), Sink: sink.Name(), Reason: "elements have different parents"}
	}
	sp, requested, err := src.freePad(PadSrc)
	if err != nil {
		return &NegotiationError{Src: src.Name(), Sink: sink.Name(), Reason: err.Error()}
	}
	if sp == nil {
		return &NegotiationError{Src: src.Name(), Sink: sink.Name(), Reason: "no free source pad"}
	}
	release := func() {
		if requested {
			src.RemovePad(sp)
		}
	}
	kp, krequested, err := sink.freePad(PadSink)
	if err != nil || kp == nil {
		release()
		reason := "no free sink pad"
		if err != nil {
			reason = err.Error()
		}
		return &NegotiationError{Src: src.Name(), Sink: sink.Name(), Reason: reason}
	}
	if err := sp.Link(kp); err != nil {
		release()
		if krequested {
			sink.RemovePad(kp)
		}
		return err
	}
	src.logger().Debugf("linked %v to %v", sp, kp)
	return nil
}

// LinkMany links elements one after another.
func LinkMany(elements ...*Element) error {
	for i := 1; i < len(elements); i++ {
		if err := Link(elements[i-1], elements[i]); err != nil {
			return err
		}
	}
	return nil
}

// Unlink removes all links from src to sink.
func Unlink(src, sink *Element) {
	for _, p := range src.Pads() {
		if peer := p.Peer(); p.dir == PadSrc && peer != nil && peer.Element() == sink {
			p.Unlink()
		}
	}
}
