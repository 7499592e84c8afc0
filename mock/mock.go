// Package mock provides element kinds for tests.
package mock

import (
	"sync"

	"pipelined.dev/gst"
)

// Hooks records state transitions and fails on demand.
type Hooks struct {
	// FailOn makes the element fail this transition.
	FailOn gst.StateChange

	mu          sync.Mutex
	transitions []gst.StateChange
}

// Transitions returns all transitions the element went through.
func (h *Hooks) Transitions() []gst.StateChange {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]gst.StateChange(nil), h.transitions...)
}

func (h *Hooks) changeState(t gst.StateChange) gst.StateChangeReturn {
	h.mu.Lock()
	h.transitions = append(h.transitions, t)
	h.mu.Unlock()
	if t == h.FailOn {
		return gst.StateChangeFailure
	}
	return gst.StateChangeSuccess
}

// Counter counts buffers and bytes.
type Counter struct {
	mu      sync.Mutex
	buffers int
	bytes   int
}

func (c *Counter) advance(size int) {
	c.mu.Lock()
	c.buffers++
	c.bytes += size
	c.mu.Unlock()
}

// Count returns number of buffers and bytes.
func (c *Counter) Count() (buffers, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers, c.bytes
}

// Element is a pass-through element. Each value backs a single element.
type Element struct {
	Hooks
	Counter
	// Caps are template caps of the sink pad, nil for ANY.
	Caps *gst.Caps
}

// Factory returns factory that creates the element.
func (m *Element) Factory(kind string) gst.Factory {
	return gst.Factory{
		Name:        kind,
		Description: "Mock pass-through element",
		New: func(e *gst.Element) (gst.ElementImpl, error) {
			src := gst.NewPad("src", gst.PadSrc, nil).SetProxyCaps(true)
			sink := gst.NewPad("sink", gst.PadSink, m.Caps).
				SetProxyCaps(true).
				SetChainFunc(func(_ *gst.Pad, b *gst.Buffer) gst.FlowReturn {
					m.advance(b.Len())
					return src.Push(b)
				})
			if err := e.AddPad(sink); err != nil {
				return nil, err
			}
			return m, e.AddPad(src)
		},
	}
}

// ChangeState records the transition.
func (m *Element) ChangeState(t gst.StateChange) gst.StateChangeReturn {
	return m.changeState(t)
}

// Sink collects buffers. It doesn't preroll, so it completes all state
// changes synchronously.
type Sink struct {
	Hooks
	Counter
	// Discard drops buffer content.
	Discard bool
	// Caps are template caps of the sink pad, nil for ANY.
	Caps *gst.Caps

	mu     sync.Mutex
	buffer []byte
	eos    bool
}

// Factory returns factory that creates the sink.
func (m *Sink) Factory(kind string) gst.Factory {
	return gst.Factory{
		Name:        kind,
		Description: "Mock sink",
		Flags:       gst.FlagSink,
		New: func(e *gst.Element) (gst.ElementImpl, error) {
			sink := gst.NewPad("sink", gst.PadSink, m.Caps).
				SetChainFunc(func(_ *gst.Pad, b *gst.Buffer) gst.FlowReturn {
					m.advance(b.Len())
					if !m.Discard {
						m.mu.Lock()
						m.buffer = append(m.buffer, b.Bytes()...)
						m.mu.Unlock()
					}
					b.Unref()
					return gst.FlowOK
				}).
				SetEventFunc(func(_ *gst.Pad, ev *gst.Event) bool {
					if ev.Type == gst.EventEOS {
						m.mu.Lock()
						m.eos = true
						m.mu.Unlock()
						e.Post(gst.NewEOSMessage(e.Name()))
					}
					return true
				})
			return m, e.AddPad(sink)
		},
	}
}

// ChangeState records the transition.
func (m *Sink) ChangeState(t gst.StateChange) gst.StateChangeReturn {
	return m.changeState(t)
}

// Buffer returns collected bytes.
func (m *Sink) Buffer() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.buffer...)
}

// EOS returns true if end of stream was received.
func (m *Sink) EOS() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eos
}

// Registry returns a registry with default kinds and provided factories.
func Registry(factories ...gst.Factory) (*gst.Registry, error) {
	r := gst.NewRegistry()
	for _, f := range gst.DefaultRegistry.Factories() {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}
