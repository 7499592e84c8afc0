package gst

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Pipeline is the top-level bin. It owns a bus and a clock.
type Pipeline struct {
	*Bin
	bus *Bus

	clockMu   sync.Mutex
	startedAt time.Time
	running   time.Duration
	playing   bool
}

// Option configures a pipeline.
type Option func(*Pipeline) error

// WithLogger sets the logger of a pipeline.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) error {
		p.setLogger(l)
		return nil
	}
}

func newPipeline(e *Element) *Pipeline {
	p := &Pipeline{Bin: newBin(e)}
	p.bus = newBus(p)
	e.bus = p.bus
	return p
}

// NewPipeline creates an empty pipeline.
func NewPipeline(name string, options ...Option) (*Pipeline, error) {
	e, err := Make("pipeline", name)
	if err != nil {
		return nil, err
	}
	p := PipelineOf(e)
	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// PipelineOf returns the pipeline of provided element or nil if it's not a
// pipeline.
func PipelineOf(e *Element) *Pipeline {
	p, _ := e.impl.(*Pipeline)
	return p
}

// Bus returns the bus of pipeline.
func (p *Pipeline) Bus() *Bus {
	return p.bus
}

// ChangeState propagates the transition to children and runs the clock.
func (p *Pipeline) ChangeState(t StateChange) StateChangeReturn {
	if t == PlayingToPaused {
		p.clockMu.Lock()
		p.running += time.Since(p.startedAt)
		p.playing = false
		p.clockMu.Unlock()
	}
	ret := p.Bin.ChangeState(t)
	if ret == StateChangeFailure {
		return ret
	}
	switch t {
	case PausedToPlaying:
		p.clockMu.Lock()
		p.startedAt = time.Now()
		p.playing = true
		p.clockMu.Unlock()
	case PausedToReady:
		p.clockMu.Lock()
		p.running = 0
		p.clockMu.Unlock()
	}
	return ret
}

// RunningTime returns the time spent in PLAYING state since the pipeline
// left READY.
func (p *Pipeline) RunningTime() time.Duration {
	p.clockMu.Lock()
	defer p.clockMu.Unlock()
	if p.playing {
		return p.running + time.Since(p.startedAt)
	}
	return p.running
}
