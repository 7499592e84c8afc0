package gst

import (
	"errors"
	"sync/atomic"
	"time"

	"pipelined.dev/gst/internal/queue"
	"pipelined.dev/gst/internal/signal"
)

// AppSink hands buffers from the pipeline to the application. Buffers can
// be pulled or announced with the new-buffer callback.
type AppSink struct {
	*Element
	sink *appSink
}

type appSink struct {
	*baseSink
	q         *queue.Queue[*Buffer]
	newBuffer *signal.Slot[struct{}]
	emit      atomic.Bool
}

func newAppSink(e *Element) (ElementImpl, error) {
	s := &appSink{
		baseSink:  newBaseSink(e, nil),
		q:         queue.New[*Buffer](0, (*Buffer).Unref),
		newBuffer: signal.New[struct{}](false),
	}
	s.q.SetFlushing(true)
	s.render = s.enqueue
	s.onEOS = s.q.MarkEOS
	e.InstallProperty(PropertySpec{
		Name:  "caps",
		Kind:  PropertyString,
		Blurb: "Accepted caps, empty for ANY",
		Set: func(v interface{}) error {
			return setPadCaps(s.sinkpad, v.(string))
		},
	})
	e.InstallProperty(PropertySpec{
		Name:  "max-buffers",
		Kind:  PropertyInt,
		Blurb: "Maximum number of queued buffers, 0 for unlimited",
		Min:   0,
		Max:   1 << 31,
		Set: func(v interface{}) error {
			s.q.SetMax(int(v.(int64)))
			return nil
		},
	})
	e.InstallProperty(PropertySpec{
		Name:  "drop",
		Kind:  PropertyBool,
		Blurb: "Drop old buffers when the queue is full",
		Set: func(v interface{}) error {
			s.q.SetLeaky(v.(bool))
			return nil
		},
	})
	e.InstallProperty(PropertySpec{
		Name:  "emit-signals",
		Kind:  PropertyBool,
		Blurb: "Announce new buffers with the new-buffer callback",
		Set: func(v interface{}) error {
			s.emit.Store(v.(bool))
			return nil
		},
	})
	return s, nil
}

// setPadCaps parses caps string, empty string resets pad caps to ANY.
func setPadCaps(p *Pad, v string) error {
	if v == "" {
		p.SetCaps(nil)
		return nil
	}
	c, err := ParseCaps(v)
	if err != nil {
		return err
	}
	p.SetCaps(c)
	return nil
}

func (s *appSink) ChangeState(t StateChange) StateChangeReturn {
	switch t {
	case ReadyToPaused:
		s.q.SetFlushing(false)
		s.newBuffer.Start()
	case PausedToReady:
		s.q.SetFlushing(true)
		ret := s.baseSink.changeState(t)
		s.newBuffer.Stop()
		return ret
	}
	return s.baseSink.changeState(t)
}

func (s *appSink) enqueue(b *Buffer) FlowReturn {
	switch err := s.q.Push(b); {
	case errors.Is(err, queue.ErrFlushing):
		b.Unref()
		return FlowFlushing
	case errors.Is(err, queue.ErrEOS):
		b.Unref()
		return FlowEOS
	}
	if s.emit.Load() {
		s.newBuffer.Emit(struct{}{})
	}
	return FlowOK
}

// AppSinkOf returns the appsink handle of the element or nil if it's not
// an appsink.
func AppSinkOf(e *Element) *AppSink {
	s, ok := e.impl.(*appSink)
	if !ok {
		return nil
	}
	return &AppSink{Element: e, sink: s}
}

// PullBuffer blocks until a buffer is available and returns a copy of its
// bytes. It returns ErrEndOfStream when the stream is over and a
// FlowError when the sink is stopped.
func (a *AppSink) PullBuffer() ([]byte, error) {
	return a.TryPullBuffer(-1)
}

// TryPullBuffer is like PullBuffer, but waits up to timeout. Negative
// timeout waits forever. ErrTimeout is returned if no buffer arrived.
func (a *AppSink) TryPullBuffer(timeout time.Duration) ([]byte, error) {
	b, err := a.sink.q.Pop(timeout)
	switch {
	case err == nil:
		p := b.Bytes()
		b.Unref()
		return p, nil
	case errors.Is(err, queue.ErrEOS):
		return nil, ErrEndOfStream
	case errors.Is(err, queue.ErrTimeout):
		return nil, ErrTimeout
	}
	return nil, &FlowError{Element: a.Name(), Flow: FlowFlushing}
}

// IsEOS returns true if the stream is over and all buffers were pulled.
// Stopped sink is always at end of stream.
func (a *AppSink) IsEOS() bool {
	return a.sink.q.Flushing() || a.sink.q.Drained()
}

// SetMaxBuffers limits the number of queued buffers. Streaming blocks
// while the queue is full unless drop is enabled.
func (a *AppSink) SetMaxBuffers(n int) error {
	return a.SetProperty("max-buffers", n)
}

// EnablePushMode turns on new-buffer notifications.
func (a *AppSink) EnablePushMode() {
	_ = a.SetProperty("emit-signals", true)
}

// ConnectNewBuffer sets the callback invoked for every queued buffer. The
// callback runs on a dedicated goroutine and is expected to pull the
// buffer. It replaces the previous callback, which never runs after this
// call returns. It can be called from the callback itself. Callback must
// not change the sink state.
func (a *AppSink) ConnectNewBuffer(fn func()) {
	a.sink.newBuffer.Connect(func(struct{}) { fn() })
}

// DisconnectNewBuffer removes the new-buffer callback. It can be called
// from the callback itself.
func (a *AppSink) DisconnectNewBuffer() {
	a.sink.newBuffer.Disconnect()
}
