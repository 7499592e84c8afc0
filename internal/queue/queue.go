// Package queue provides the bounded blocking FIFO that sits between
// streaming goroutines and the callers of endpoint elements.
package queue

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrFlushing is returned when the queue was set to flushing.
	ErrFlushing = errors.New("queue is flushing")
	// ErrEOS is returned by Pop when the queue is drained and end of
	// stream was marked, and by Push after the mark.
	ErrEOS = errors.New("queue reached end of stream")
	// ErrTimeout is returned by Pop when the wait expired.
	ErrTimeout = errors.New("queue wait timed out")
)

// Queue is a FIFO with optional depth limit. Push blocks while the queue is
// full unless the queue is leaky, then the oldest item is dropped instead.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	max      int
	leaky    bool
	flushing bool
	eos      bool
	release  func(T)
	// changed is closed and replaced on every change.
	changed chan struct{}
}

// New returns a queue limited to max items, zero means unlimited. Release
// is called for every item that is dropped or flushed, it can be nil.
func New[T any](max int, release func(T)) *Queue[T] {
	return &Queue[T]{
		max:     max,
		release: release,
		changed: make(chan struct{}),
	}
}

// Push appends v to the queue.
func (q *Queue[T]) Push(v T) error {
	var dropped []T
	q.mu.Lock()
	for {
		if q.flushing {
			q.mu.Unlock()
			q.drop(dropped...)
			return ErrFlushing
		}
		if q.eos {
			q.mu.Unlock()
			q.drop(dropped...)
			return ErrEOS
		}
		if q.max <= 0 || len(q.items) < q.max {
			break
		}
		if q.leaky {
			dropped = append(dropped, q.items[0])
			q.shiftLocked()
			continue
		}
		ch := q.changed
		q.mu.Unlock()
		<-ch
		q.mu.Lock()
	}
	q.items = append(q.items, v)
	q.notifyLocked()
	q.mu.Unlock()
	q.drop(dropped...)
	return nil
}

// Pop removes the oldest item. Negative timeout waits forever, zero
// timeout doesn't wait at all.
func (q *Queue[T]) Pop(timeout time.Duration) (T, error) {
	var (
		zero     T
		deadline <-chan time.Time
	)
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	q.mu.Lock()
	for {
		if len(q.items) > 0 {
			v := q.items[0]
			q.shiftLocked()
			q.notifyLocked()
			q.mu.Unlock()
			return v, nil
		}
		if q.flushing {
			q.mu.Unlock()
			return zero, ErrFlushing
		}
		if q.eos {
			q.mu.Unlock()
			return zero, ErrEOS
		}
		if timeout == 0 {
			q.mu.Unlock()
			return zero, ErrTimeout
		}
		ch := q.changed
		q.mu.Unlock()
		select {
		case <-ch:
		case <-deadline:
			return zero, ErrTimeout
		}
		q.mu.Lock()
	}
}

// MarkEOS marks end of stream. Pop keeps returning queued items before it
// reports ErrEOS.
func (q *Queue[T]) MarkEOS() {
	q.mu.Lock()
	q.eos = true
	q.notifyLocked()
	q.mu.Unlock()
}

// SetFlushing drops all queued items and wakes up all waiters when flushing
// is true. Leaving flushing mode also clears end of stream.
func (q *Queue[T]) SetFlushing(flushing bool) {
	q.mu.Lock()
	q.flushing = flushing
	var dropped []T
	if flushing {
		dropped = q.items
		q.items = nil
	} else {
		q.eos = false
	}
	q.notifyLocked()
	q.mu.Unlock()
	q.drop(dropped...)
}

// SetMax changes the depth limit.
func (q *Queue[T]) SetMax(max int) {
	q.mu.Lock()
	q.max = max
	q.notifyLocked()
	q.mu.Unlock()
}

// SetLeaky makes the queue drop the oldest item instead of blocking.
func (q *Queue[T]) SetLeaky(leaky bool) {
	q.mu.Lock()
	q.leaky = leaky
	q.notifyLocked()
	q.mu.Unlock()
}

// Len returns number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drained returns true if end of stream was marked and nothing is left.
func (q *Queue[T]) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.eos && len(q.items) == 0
}

// Flushing returns true if queue is in flushing mode.
func (q *Queue[T]) Flushing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushing
}

func (q *Queue[T]) shiftLocked() {
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
}

func (q *Queue[T]) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func (q *Queue[T]) drop(items ...T) {
	if q.release == nil {
		return
	}
	for _, v := range items {
		q.release(v)
	}
}
