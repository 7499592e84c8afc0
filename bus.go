package gst

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// Bus is a FIFO of messages posted by pipeline elements. It's safe for
// concurrent use. Messages are consumed by the pop call that returns them.
type Bus struct {
	uid      xid.ID
	pipeline *Pipeline

	mu       sync.Mutex
	queue    []*Message
	flushing bool
	// notify is closed and replaced when a message is posted.
	notify chan struct{}
}

func newBus(p *Pipeline) *Bus {
	return &Bus{
		uid:      xid.New(),
		pipeline: p,
		notify:   make(chan struct{}),
	}
}

// NewBus returns a bus that isn't attached to a pipeline.
func NewBus() *Bus {
	return newBus(nil)
}

// Pipeline returns the pipeline the bus belongs to.
func (b *Bus) Pipeline() *Pipeline {
	return b.pipeline
}

// UID returns unique id of the bus.
func (b *Bus) UID() string {
	return b.uid.String()
}

// Post appends the message to the bus. It returns false if the bus is
// flushing and the message was dropped.
func (b *Bus) Post(m *Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flushing {
		return false
	}
	b.queue = append(b.queue, m)
	close(b.notify)
	b.notify = make(chan struct{})
	return true
}

// SetFlushing drops all queued messages and makes the bus drop new ones
// until flushing is disabled.
func (b *Bus) SetFlushing(flushing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushing = flushing
	if flushing {
		b.queue = nil
	}
}

// HavePending returns true if there are queued messages.
func (b *Bus) HavePending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue) > 0
}

// Peek returns the oldest message without removing it.
func (b *Bus) Peek() *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	return b.queue[0]
}

// Pop removes and returns the oldest message. It returns nil if the bus is
// empty.
func (b *Bus) Pop() *Message {
	return b.PopFiltered(MessageAny)
}

// PopFiltered removes and returns the oldest message matching types. It
// doesn't block. Messages that don't match stay on the bus.
func (b *Bus) PopFiltered(types MessageType) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, _ := b.popLocked(types)
	return m
}

// TimedPopFiltered waits up to timeout for a message matching types.
// Negative timeout waits forever. The timeout is relative to the call. It
// returns ErrTimeout if no message arrived.
func (b *Bus) TimedPopFiltered(timeout time.Duration, types MessageType) (*Message, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		b.mu.Lock()
		m, notify := b.popLocked(types)
		b.mu.Unlock()
		if m != nil {
			return m, nil
		}
		if timeout == 0 {
			return nil, ErrTimeout
		}
		select {
		case <-notify:
		case <-deadline:
			return nil, ErrTimeout
		}
	}
}

func (b *Bus) popLocked(types MessageType) (*Message, chan struct{}) {
	for i, m := range b.queue {
		if m.Type&types == 0 {
			continue
		}
		copy(b.queue[i:], b.queue[i+1:])
		b.queue[len(b.queue)-1] = nil
		b.queue = b.queue[:len(b.queue)-1]
		return m, b.notify
	}
	return nil, b.notify
}
