package gst

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"pipelined.dev/gst/internal/queue"
)

// newPassPads adds sink and src pads that proxy caps queries. Buffers are
// passed to the chain function.
func newPassPads(e *Element, chain ChainFunc) (sinkpad, srcpad *Pad, err error) {
	srcpad = NewPad("src", PadSrc, nil).SetProxyCaps(true)
	sinkpad = NewPad("sink", PadSink, nil).SetProxyCaps(true).SetChainFunc(chain)
	if err = e.AddPad(sinkpad); err != nil {
		return nil, nil, err
	}
	if err = e.AddPad(srcpad); err != nil {
		return nil, nil, err
	}
	return sinkpad, srcpad, nil
}

type identity struct {
	srcpad *Pad
}

func newIdentity(e *Element) (ElementImpl, error) {
	i := &identity{}
	var err error
	_, i.srcpad, err = newPassPads(e, func(_ *Pad, b *Buffer) FlowReturn {
		return i.srcpad.Push(b)
	})
	return i, err
}

func (*identity) ChangeState(StateChange) StateChangeReturn {
	return StateChangeSuccess
}

type capsFilter struct {
	sinkpad, srcpad *Pad
}

func newCapsFilter(e *Element) (ElementImpl, error) {
	f := &capsFilter{}
	var err error
	f.sinkpad, f.srcpad, err = newPassPads(e, func(_ *Pad, b *Buffer) FlowReturn {
		return f.srcpad.Push(b)
	})
	if err != nil {
		return nil, err
	}
	e.InstallProperty(PropertySpec{
		Name:  "caps",
		Kind:  PropertyString,
		Blurb: "Allowed caps, empty for ANY",
		Set: func(v interface{}) error {
			if err := setPadCaps(f.sinkpad, v.(string)); err != nil {
				return err
			}
			return setPadCaps(f.srcpad, v.(string))
		},
	})
	return f, nil
}

func (*capsFilter) ChangeState(StateChange) StateChangeReturn {
	return StateChangeSuccess
}

type tagInject struct {
	e      *Element
	srcpad *Pad
	sent   atomic.Bool
}

func newTagInject(e *Element) (ElementImpl, error) {
	t := &tagInject{e: e}
	var err error
	_, t.srcpad, err = newPassPads(e, t.chain)
	if err != nil {
		return nil, err
	}
	e.InstallProperty(PropertySpec{
		Name:  "tags",
		Kind:  PropertyString,
		Blurb: "Tags to send, like title=foo,artist=bar",
		Set: func(v interface{}) error {
			_, err := ParseTags(v.(string))
			return err
		},
	})
	return t, nil
}

func (t *tagInject) ChangeState(st StateChange) StateChangeReturn {
	if st == ReadyToPaused {
		t.sent.Store(false)
	}
	return StateChangeSuccess
}

func (t *tagInject) chain(_ *Pad, b *Buffer) FlowReturn {
	if !t.sent.Swap(true) {
		if tags, _ := ParseTags(t.e.stringProperty("tags")); len(tags) > 0 {
			t.srcpad.PushEvent(NewTagEvent(tags))
		}
	}
	return t.srcpad.Push(b)
}

// ParseTags parses comma separated name=value pairs. Values can be
// double-quoted.
func ParseTags(s string) (TagList, error) {
	var tags TagList
	for _, item := range splitQuoted(s, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		k, v, ok := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q", item)
		}
		tags = tags.Add(k, strings.Trim(strings.TrimSpace(v), `"`))
	}
	return tags, nil
}

// splitQuoted splits s by sep outside of double quotes.
func splitQuoted(s string, sep rune) []string {
	var (
		res    []string
		quoted bool
		start  int
	)
	for i, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case r == sep && !quoted:
			res = append(res, s[start:i])
			start = i + 1
		}
	}
	return append(res, s[start:])
}

type tee struct {
	e *Element
}

func newTee(e *Element) (ElementImpl, error) {
	t := &tee{e: e}
	sinkpad := NewPad("sink", PadSink, nil).SetProxyCaps(true).SetChainFunc(t.chain)
	return t, e.AddPad(sinkpad)
}

func (*tee) ChangeState(StateChange) StateChangeReturn {
	return StateChangeSuccess
}

// RequestPad creates a new source pad.
func (t *tee) RequestPad(dir PadDirection) (*Pad, error) {
	if dir != PadSrc {
		return nil, errors.New("tee has no request sink pads")
	}
	p := NewPad(t.e.nextPadName("src"), PadSrc, nil).SetProxyCaps(true)
	if t.e.State() >= StatePaused {
		p.setActive(true)
	}
	return p, nil
}

// chain pushes the buffer to all source pads. Fatal results win over OK,
// OK wins over other results.
func (t *tee) chain(_ *Pad, b *Buffer) FlowReturn {
	defer b.Unref()
	b.Seal()
	res := FlowNotLinked
	for _, p := range t.e.Pads() {
		if p.Direction() != PadSrc {
			continue
		}
		ret := p.Push(b.Ref())
		switch {
		case res < FlowEOS:
		case ret < FlowEOS, ret == FlowOK:
			res = ret
		case res == FlowNotLinked:
			res = ret
		}
	}
	return res
}

type queueItem struct {
	buf *Buffer
	ev  *Event
}

func (i queueItem) release() {
	if i.buf != nil {
		i.buf.Unref()
	}
}

type queueElement struct {
	e       *Element
	srcpad  *Pad
	q       *queue.Queue[queueItem]
	task    task
	flow    atomic.Int32
	dropNew atomic.Bool
}

func newQueue(e *Element) (ElementImpl, error) {
	q := &queueElement{
		e: e,
		q: queue.New[queueItem](200, queueItem.release),
	}
	q.q.SetFlushing(true)
	sinkpad, srcpad, err := newPassPads(e, q.chain)
	if err != nil {
		return nil, err
	}
	q.srcpad = srcpad
	sinkpad.SetEventFunc(q.event)
	e.InstallProperty(PropertySpec{
		Name:    "max-size-buffers",
		Kind:    PropertyInt,
		Blurb:   "Maximum number of queued buffers, 0 for unlimited",
		Default: 200,
		Min:     0,
		Max:     1 << 31,
		Set: func(v interface{}) error {
			q.q.SetMax(int(v.(int64)))
			return nil
		},
	})
	e.InstallProperty(PropertySpec{
		Name:  "leaky",
		Kind:  PropertyInt,
		Blurb: "Drop buffers when full: 0 no, 1 new buffers, 2 old buffers",
		Min:   0,
		Max:   2,
		Set: func(v interface{}) error {
			leaky := v.(int64)
			q.dropNew.Store(leaky == 1)
			q.q.SetLeaky(leaky == 2)
			return nil
		},
	})
	return q, nil
}

func (q *queueElement) ChangeState(t StateChange) StateChangeReturn {
	switch t {
	case ReadyToPaused:
		q.flow.Store(int32(FlowOK))
		q.q.SetFlushing(false)
		q.task.start(q.e, q.loop)
	case PausedToReady:
		q.q.SetFlushing(true)
		q.task.join()
	}
	return StateChangeSuccess
}

func (q *queueElement) chain(_ *Pad, b *Buffer) FlowReturn {
	if ret := FlowReturn(q.flow.Load()); ret != FlowOK {
		b.Unref()
		return ret
	}
	if q.dropNew.Load() {
		if limit := int(q.e.intProperty("max-size-buffers")); limit > 0 && q.q.Len() >= limit {
			b.Unref()
			return FlowOK
		}
	}
	if err := q.q.Push(queueItem{buf: b}); err != nil {
		b.Unref()
		return FlowFlushing
	}
	return FlowOK
}

func (q *queueElement) event(_ *Pad, ev *Event) bool {
	return q.q.Push(queueItem{ev: ev}) == nil
}

// loop pushes queued items downstream until the queue is flushed or
// downstream refuses data.
func (q *queueElement) loop(<-chan struct{}) {
	for {
		item, err := q.q.Pop(-1)
		if err != nil {
			return
		}
		if item.ev != nil {
			q.srcpad.PushEvent(item.ev)
			continue
		}
		if ret := q.srcpad.Push(item.buf); ret != FlowOK {
			q.flow.Store(int32(ret))
			if ret.fatal() {
				q.e.PostError(&FlowError{Element: q.e.Name(), Flow: ret}, "streaming stopped")
			}
			return
		}
	}
}

type fakeSrc struct {
	e      *Element
	srcpad *Pad
	task   task
}

func newFakeSrc(e *Element) (ElementImpl, error) {
	s := &fakeSrc{
		e:      e,
		srcpad: NewPad("src", PadSrc, nil),
	}
	e.InstallProperty(PropertySpec{
		Name:    "num-buffers",
		Kind:    PropertyInt,
		Blurb:   "Number of buffers before end of stream, -1 for unlimited",
		Default: -1,
	})
	e.InstallProperty(PropertySpec{
		Name:    "sizemax",
		Kind:    PropertyInt,
		Blurb:   "Size of produced buffers",
		Default: 4096,
		Min:     0,
		Max:     1 << 30,
	})
	e.InstallProperty(PropertySpec{
		Name:  "is-live",
		Kind:  PropertyBool,
		Blurb: "Produce data only in PLAYING state",
	})
	return s, e.AddPad(s.srcpad)
}

func (s *fakeSrc) ChangeState(t StateChange) StateChangeReturn {
	live := s.e.boolProperty("is-live")
	switch t {
	case ReadyToPaused:
		s.task.start(s.e, s.loop)
		if live {
			return StateChangeNoPreroll
		}
	case PlayingToPaused:
		if live {
			return StateChangeNoPreroll
		}
	case PausedToReady:
		s.task.join()
	}
	return StateChangeSuccess
}

func (s *fakeSrc) loop(stop <-chan struct{}) {
	live := s.e.boolProperty("is-live")
	num := s.e.intProperty("num-buffers")
	size := int(s.e.intProperty("sizemax"))
	if live && !waitState(s.e, StatePlaying, stop) {
		return
	}
	s.srcpad.PushEvent(NewStreamStartEvent(uuid.NewString()))
	for i := int64(0); num < 0 || i < num; i++ {
		select {
		case <-stop:
			return
		default:
		}
		if live && !waitState(s.e, StatePlaying, stop) {
			return
		}
		b := NewBuffer(size)
		b.Offset = i * int64(size)
		if ret := s.srcpad.Push(b); ret != FlowOK {
			if ret.fatal() {
				s.e.PostError(&FlowError{Element: s.e.Name(), Flow: ret}, "streaming stopped")
			}
			if ret != FlowEOS {
				return
			}
			break
		}
	}
	s.srcpad.PushEvent(NewEOSEvent())
}

type fakeSink struct {
	*baseSink
}

func newFakeSink(e *Element) (ElementImpl, error) {
	return &fakeSink{baseSink: newBaseSink(e, nil)}, nil
}

func (s *fakeSink) ChangeState(t StateChange) StateChangeReturn {
	return s.baseSink.changeState(t)
}
