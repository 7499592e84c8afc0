// Package signal delivers element notifications to a single user handler on
// a dedicated goroutine, so streaming goroutines never run user code.
package signal

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Slot holds at most one handler. Emitted values are queued and delivered
// in order by the dispatcher goroutine.
type Slot[T any] struct {
	mu        sync.Mutex
	idle      *sync.Cond
	handler   func(T)
	connected atomic.Bool
	coalesce  bool
	// delivering is set while a handler runs on the dispatcher goroutine
	// with id dispatcher.
	delivering bool
	dispatcher uint64

	pmu     sync.Mutex
	pending []T
	running bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// New returns a slot. When coalesce is true, values emitted while the
// handler is busy are merged into a single delivery of the latest value.
func New[T any](coalesce bool) *Slot[T] {
	s := &Slot[T]{coalesce: coalesce}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Connect replaces the current handler. It waits for the handler call in
// progress, so the old handler never runs after Connect returns. Called
// from the handler itself, it doesn't wait and the current call finishes
// normally.
func (s *Slot[T]) Connect(fn func(T)) {
	s.mu.Lock()
	if s.delivering {
		id := goid()
		for s.delivering && s.dispatcher != id {
			s.idle.Wait()
		}
	}
	s.handler = fn
	s.connected.Store(fn != nil)
	s.mu.Unlock()
}

// Disconnect removes the current handler. It's safe to call from the
// handler.
func (s *Slot[T]) Disconnect() {
	s.Connect(nil)
}

// Connected returns true if handler is set.
func (s *Slot[T]) Connected() bool {
	return s.connected.Load()
}

// Start launches the dispatcher goroutine. It's safe to call Start on a
// running slot.
func (s *Slot[T]) Start() {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.wake = make(chan struct{}, 1)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.wake, s.stop, s.done)
}

// Stop terminates the dispatcher and drops undelivered values. It blocks
// until the handler call in progress returns, so it must not be called
// from the handler itself.
func (s *Slot[T]) Stop() {
	s.pmu.Lock()
	if !s.running {
		s.pmu.Unlock()
		return
	}
	s.running = false
	s.pending = nil
	close(s.stop)
	done := s.done
	s.pmu.Unlock()
	<-done
}

// Emit queues v for delivery. It never blocks. Values emitted while the
// slot is stopped or has no handler are dropped.
func (s *Slot[T]) Emit(v T) {
	if !s.connected.Load() {
		return
	}
	s.pmu.Lock()
	if !s.running {
		s.pmu.Unlock()
		return
	}
	if s.coalesce && len(s.pending) > 0 {
		s.pending[len(s.pending)-1] = v
	} else {
		s.pending = append(s.pending, v)
	}
	wake := s.wake
	s.pmu.Unlock()
	select {
	case wake <- struct{}{}:
	default:
	}
}

func (s *Slot[T]) run(wake, stop, done chan struct{}) {
	defer close(done)
	id := goid()
	for {
		select {
		case <-stop:
			return
		case <-wake:
		}
		for {
			s.pmu.Lock()
			batch := s.pending
			s.pending = nil
			s.pmu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, v := range batch {
				select {
				case <-stop:
					return
				default:
				}
				s.deliver(id, v)
			}
		}
	}
}

func (s *Slot[T]) deliver(id uint64, v T) {
	s.mu.Lock()
	fn := s.handler
	if fn == nil {
		s.mu.Unlock()
		return
	}
	s.delivering, s.dispatcher = true, id
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.delivering = false
		s.idle.Broadcast()
		s.mu.Unlock()
	}()
	fn(v)
}

// goid returns the id of the calling goroutine.
func goid() uint64 {
	var buf [64]byte
	b := bytes.TrimPrefix(buf[:runtime.Stack(buf[:], false)], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
