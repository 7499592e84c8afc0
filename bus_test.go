package gst_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
)

func TestBusOrder(t *testing.T) {
	bus := gst.NewBus()
	a := gst.NewEOSMessage("a")
	b := gst.NewEOSMessage("b")
	assert.True(t, bus.Post(a))
	assert.True(t, bus.Post(b))
	assert.True(t, bus.HavePending())
	assert.Same(t, a, bus.Peek())
	assert.Same(t, a, bus.Pop())
	assert.Same(t, b, bus.Pop())
	assert.Nil(t, bus.Pop())
	assert.False(t, bus.HavePending())
}

func TestPopFiltered(t *testing.T) {
	bus := gst.NewBus()
	tag := gst.NewTagMessage("src", gst.TagList{}.Add("title", "x"))
	eos := gst.NewEOSMessage("sink")
	errMsg := gst.NewErrorMessage("src", errors.New("boom"), "debug")
	bus.Post(tag)
	bus.Post(eos)
	bus.Post(errMsg)

	assert.Same(t, errMsg, bus.PopFiltered(gst.MessageError))
	assert.Nil(t, bus.PopFiltered(gst.MessageStateChanged))
	assert.Same(t, eos, bus.PopFiltered(gst.MessageError|gst.MessageEOS))
	// skipped message is still there
	assert.Same(t, tag, bus.Pop())
}

func TestTimedPopFiltered(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		post    bool
		err     error
	}{
		{name: "no wait", timeout: 0, err: gst.ErrTimeout},
		{name: "expired", timeout: 10 * time.Millisecond, err: gst.ErrTimeout},
		{name: "posted", timeout: time.Second, post: true},
		{name: "forever", timeout: -1, post: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bus := gst.NewBus()
			var wg sync.WaitGroup
			if test.post {
				wg.Add(1)
				go func() {
					defer wg.Done()
					time.Sleep(5 * time.Millisecond)
					bus.Post(gst.NewTagMessage("src", nil))
					bus.Post(gst.NewEOSMessage("sink"))
				}()
			}
			m, err := bus.TimedPopFiltered(test.timeout, gst.MessageEOS)
			wg.Wait()
			assert.Equal(t, test.err, err)
			if test.err == nil {
				require.NotNil(t, m)
				assert.Equal(t, gst.MessageEOS, m.Type)
				assert.Equal(t, "sink", m.Source)
			}
		})
	}
}

func TestBusFlushing(t *testing.T) {
	bus := gst.NewBus()
	bus.Post(gst.NewEOSMessage("a"))
	bus.SetFlushing(true)
	assert.False(t, bus.HavePending())
	assert.False(t, bus.Post(gst.NewEOSMessage("b")))
	bus.SetFlushing(false)
	assert.True(t, bus.Post(gst.NewEOSMessage("c")))
	assert.Equal(t, "c", bus.Pop().Source)
}
