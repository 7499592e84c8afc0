package gst

import "sync"

// task is the streaming goroutine of an element.
type task struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// start launches fn on a new goroutine unless the task is running. Stream
// status messages are posted when the goroutine enters and leaves.
func (t *task) start(e *Element, fn func(stop <-chan struct{})) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	t.stop, t.done = stop, done
	go func() {
		defer close(done)
		e.Post(NewStreamStatusMessage(e.Name(), StreamStatusEnter, e.Name()))
		fn(stop)
		e.Post(NewStreamStatusMessage(e.Name(), StreamStatusLeave, e.Name()))
	}()
}

// join stops the task and waits until the goroutine returns.
func (t *task) join() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
