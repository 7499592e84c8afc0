package gst

import (
	"sync"

	"pipelined.dev/gst/metric"
)

// baseSink implements preroll and end of stream handling shared by sinks.
// A sink completes READY_TO_PAUSED asynchronously when the first buffer or
// EOS arrives and holds data until the element is PLAYING.
type baseSink struct {
	e       *Element
	sinkpad *Pad
	// render takes ownership of the buffer
	render  func(b *Buffer) FlowReturn
	onEOS   func()
	measure metric.MeasureFunc

	mu       sync.Mutex
	flushing bool
	preroll  bool
	eos      bool
	// changed is closed and replaced when flushing changes
	changed chan struct{}
}

func newBaseSink(e *Element, caps *Caps) *baseSink {
	s := &baseSink{
		e:        e,
		flushing: true,
		changed:  make(chan struct{}),
		render: func(b *Buffer) FlowReturn {
			b.Unref()
			return FlowOK
		},
		onEOS:   func() {},
		measure: func(int) {},
	}
	e.InstallProperty(PropertySpec{
		Name:    "async",
		Kind:    PropertyBool,
		Blurb:   "Complete READY_TO_PAUSED after preroll",
		Default: true,
	})
	s.sinkpad = NewPad("sink", PadSink, caps).
		SetChainFunc(s.chain).
		SetEventFunc(s.event)
	_ = e.AddPad(s.sinkpad)
	return s
}

func (s *baseSink) changeState(t StateChange) StateChangeReturn {
	switch t {
	case ReadyToPaused:
		async := s.e.boolProperty("async")
		s.mu.Lock()
		s.flushing = false
		s.eos = false
		s.preroll = async
		s.measure = s.e.meter()
		s.mu.Unlock()
		if async {
			return StateChangeAsync
		}
	case PausedToReady:
		s.mu.Lock()
		s.flushing = true
		s.preroll = false
		close(s.changed)
		s.changed = make(chan struct{})
		s.mu.Unlock()
	}
	return StateChangeSuccess
}

// waitPlaying commits preroll and blocks until the element is PLAYING or
// flushing.
func (s *baseSink) waitPlaying() FlowReturn {
	for {
		s.mu.Lock()
		if s.flushing {
			s.mu.Unlock()
			return FlowFlushing
		}
		preroll := s.preroll
		s.preroll = false
		changed := s.changed
		s.mu.Unlock()
		if preroll {
			s.e.commitAsync(StatePaused)
		}
		current, stateChanged := s.e.currentState()
		if current == StatePlaying {
			return FlowOK
		}
		select {
		case <-changed:
		case <-stateChanged:
		}
	}
}

func (s *baseSink) chain(_ *Pad, b *Buffer) FlowReturn {
	if ret := s.waitPlaying(); ret != FlowOK {
		b.Unref()
		return ret
	}
	s.mu.Lock()
	eos, measure := s.eos, s.measure
	s.mu.Unlock()
	if eos {
		b.Unref()
		return FlowEOS
	}
	measure(b.Len())
	return s.render(b)
}

func (s *baseSink) event(_ *Pad, ev *Event) bool {
	switch ev.Type {
	case EventStreamStart:
		s.e.Post(NewStreamStartMessage(s.e.Name(), ev.StreamID))
	case EventTag:
		s.e.Post(NewTagMessage(s.e.Name(), ev.Tags))
	case EventEOS:
		if s.waitPlaying() != FlowOK {
			return false
		}
		s.mu.Lock()
		s.eos = true
		s.mu.Unlock()
		s.onEOS()
		s.e.logger().Debug("end of stream")
		s.e.Post(NewEOSMessage(s.e.Name()))
	}
	return true
}

// isEOS returns true if end of stream was received.
func (s *baseSink) isEOS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eos
}
