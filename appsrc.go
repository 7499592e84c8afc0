package gst

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pipelined.dev/gst/internal/signal"
)

// AppSrc injects application data into the pipeline. Buffers are handed
// to the streaming goroutine of the element, so PushBuffer returns the
// result of pushing the data downstream.
type AppSrc struct {
	*Element
	src *appSrc
}

type srcRequest struct {
	buf   *Buffer
	eos   bool
	reply chan FlowReturn
}

type appSrc struct {
	e        *Element
	srcpad   *Pad
	task     task
	needData *signal.Slot[int]
	requests chan srcRequest

	mu       sync.Mutex
	flushing bool
	eos      bool
	stop     chan struct{}
}

func newAppSrc(e *Element) (ElementImpl, error) {
	s := &appSrc{
		e:        e,
		srcpad:   NewPad("src", PadSrc, nil),
		needData: signal.New[int](true),
		requests: make(chan srcRequest),
		flushing: true,
	}
	if err := e.AddPad(s.srcpad); err != nil {
		return nil, err
	}
	e.InstallProperty(PropertySpec{
		Name:  "caps",
		Kind:  PropertyString,
		Blurb: "Caps of produced data, empty for ANY",
		Set: func(v interface{}) error {
			return setPadCaps(s.srcpad, v.(string))
		},
	})
	e.InstallProperty(PropertySpec{
		Name:  "is-live",
		Kind:  PropertyBool,
		Blurb: "Produce data only in PLAYING state",
	})
	e.InstallProperty(PropertySpec{
		Name:    "block-size",
		Kind:    PropertyInt,
		Blurb:   "Size in bytes requested with need-data",
		Default: 4096,
		Min:     1,
		Max:     1 << 30,
	})
	e.InstallProperty(PropertySpec{
		Name:    "duration",
		Kind:    PropertyInt,
		Blurb:   "Duration of the stream in nanoseconds, -1 if unknown",
		Default: -1,
		Set: func(v interface{}) error {
			e.Post(NewDurationChangedMessage(e.Name(), time.Duration(v.(int64))))
			return nil
		},
	})
	return s, nil
}

func (s *appSrc) ChangeState(t StateChange) StateChangeReturn {
	switch t {
	case ReadyToPaused:
		s.mu.Lock()
		s.flushing = false
		s.eos = false
		s.stop = make(chan struct{})
		s.mu.Unlock()
		s.needData.Start()
		s.task.start(s.e, s.loop)
		if s.e.boolProperty("is-live") {
			return StateChangeNoPreroll
		}
	case PlayingToPaused:
		if s.e.boolProperty("is-live") {
			return StateChangeNoPreroll
		}
	case PausedToReady:
		s.mu.Lock()
		s.flushing = true
		close(s.stop)
		s.mu.Unlock()
		s.task.join()
		s.needData.Stop()
	}
	return StateChangeSuccess
}

// loop is the streaming goroutine. It announces need-data and pushes
// buffers handed over by PushBuffer.
func (s *appSrc) loop(stop <-chan struct{}) {
	live := s.e.boolProperty("is-live")
	blockSize := int(s.e.intProperty("block-size"))
	measure := s.e.meter()
	started := false
	for {
		if live && !waitState(s.e, StatePlaying, stop) {
			return
		}
		if !started {
			s.srcpad.PushEvent(NewStreamStartEvent(uuid.NewString()))
			started = true
		}
		s.needData.Emit(blockSize)
		var r srcRequest
		select {
		case <-stop:
			return
		case r = <-s.requests:
		}
		if r.eos {
			s.srcpad.PushEvent(NewEOSEvent())
			r.reply <- FlowOK
			continue
		}
		measure(r.buf.Len())
		ret := s.srcpad.Push(r.buf)
		r.reply <- ret
		if ret.fatal() {
			s.e.PostError(&FlowError{Element: s.e.Name(), Flow: ret}, "streaming stopped")
		}
	}
}

// waitState blocks until element is in state s or stop is closed.
func waitState(e *Element, s State, stop <-chan struct{}) bool {
	for {
		current, changed := e.currentState()
		if current == s {
			return true
		}
		select {
		case <-stop:
			return false
		case <-changed:
		}
	}
}

// handOver passes request to the streaming goroutine and waits for result.
// The buffer of request is released if it wasn't handed over, pushed
// buffers are always sealed.
func (s *appSrc) handOver(r srcRequest) FlowReturn {
	ret := s.send(r)
	if ret != FlowOK && r.buf != nil && !r.buf.Sealed() {
		r.buf.Unref()
	}
	return ret
}

func (s *appSrc) send(r srcRequest) FlowReturn {
	s.mu.Lock()
	flushing, eos, stop := s.flushing, s.eos, s.stop
	if !flushing && !eos && r.eos {
		s.eos = true
	}
	s.mu.Unlock()
	switch {
	case flushing:
		return FlowFlushing
	case eos:
		return FlowEOS
	case !r.eos && !s.srcpad.IsLinked():
		return FlowNotLinked
	}
	r.reply = make(chan FlowReturn, 1)
	select {
	case s.requests <- r:
	case <-stop:
		return FlowFlushing
	}
	return <-r.reply
}

// AppSrcOf returns the appsrc handle of the element or nil if it's not an
// appsrc.
func AppSrcOf(e *Element) *AppSrc {
	s, ok := e.impl.(*appSrc)
	if !ok {
		return nil
	}
	return &AppSrc{Element: e, src: s}
}

// PushBuffer copies p into a new buffer and pushes it downstream. It
// blocks while downstream doesn't accept data, including while a sink
// holds its preroll buffer in PAUSED: after SetState(StatePaused) a push
// that reaches the sink returns only once the pipeline goes to PLAYING or
// is stopped, so PLAYING must be requested from another goroutine or
// before the push. A FlowError is returned if the buffer was not accepted.
func (a *AppSrc) PushBuffer(p []byte) error {
	b := NewBufferFromBytes(p)
	if ret := a.src.handOver(srcRequest{buf: b}); ret != FlowOK {
		return &FlowError{Element: a.Name(), Flow: ret}
	}
	return nil
}

// EndOfStream signals that no more data will be pushed. It blocks until
// the event is sent downstream.
func (a *AppSrc) EndOfStream() error {
	if ret := a.src.handOver(srcRequest{eos: true}); ret != FlowOK {
		return &FlowError{Element: a.Name(), Flow: ret}
	}
	return nil
}

// ConnectNeedData sets the callback invoked when downstream wants more
// data. It receives the preferred number of bytes. The callback runs on a
// dedicated goroutine and replaces the previous one, which never runs
// after this call returns. It can be called from the callback itself.
func (a *AppSrc) ConnectNeedData(fn func(length int)) {
	a.src.needData.Connect(fn)
}

// DisconnectNeedData removes the need-data callback. It can be called from
// the callback itself.
func (a *AppSrc) DisconnectNeedData() {
	a.src.needData.Disconnect()
}

// SetCaps sets caps of produced data.
func (a *AppSrc) SetCaps(c *Caps) error {
	return a.SetProperty("caps", c.String())
}
