package gst_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
)

// endpoints builds a pipeline and returns its appsrc "src" and appsink
// "sink".
func endpoints(t *testing.T, desc string) (*gst.Pipeline, *gst.AppSrc, *gst.AppSink) {
	t.Helper()
	p, err := gst.ParsePipeline(desc)
	require.NoError(t, err)
	src, err := p.GetByName("src")
	require.NoError(t, err)
	sink, err := p.GetByName("sink")
	require.NoError(t, err)
	return p, gst.AppSrcOf(src), gst.AppSinkOf(sink)
}

func shutdown(t *testing.T, p *gst.Pipeline) {
	t.Helper()
	_, err := p.SetState(gst.StateNull)
	require.NoError(t, err)
	assert.NoError(t, p.Dispose())
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		desc string
	}{
		{
			name: "direct",
			desc: "appsrc name=src ! appsink name=sink",
		},
		{
			name: "identity",
			desc: "appsrc name=src ! identity ! appsink name=sink",
		},
		{
			name: "queue",
			desc: "appsrc name=src ! queue max-size-buffers=1 ! identity ! appsink name=sink",
		},
		{
			name: "caps",
			desc: "appsrc name=src caps=audio/x-raw,rate=8000 ! audio/x-raw ! taginject tags=title=x ! appsink name=sink",
		},
	}
	input := [][]byte{
		[]byte("first"),
		bytes.Repeat([]byte{0xff}, 5000),
		{0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, src, sink := endpoints(t, test.desc)
			_, err := p.SetState(gst.StatePlaying)
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() {
				for _, b := range input {
					if err := src.PushBuffer(b); err != nil {
						done <- err
						return
					}
				}
				done <- src.EndOfStream()
			}()

			for _, expected := range input {
				b, err := sink.PullBuffer()
				require.NoError(t, err)
				assert.Equal(t, expected, b)
			}
			_, err = sink.PullBuffer()
			assert.ErrorIs(t, err, gst.ErrEndOfStream)
			assert.True(t, sink.IsEOS())
			require.NoError(t, <-done)

			m, err := p.Bus().TimedPopFiltered(time.Second, gst.MessageEOS|gst.MessageError)
			require.NoError(t, err)
			assert.Equal(t, gst.MessageEOS, m.Type)
			shutdown(t, p)
		})
	}
}

func TestPushBufferErrors(t *testing.T) {
	t.Run("stopped", func(t *testing.T) {
		p, src, _ := endpoints(t, "appsrc name=src ! appsink name=sink")
		assert.ErrorIs(t, src.PushBuffer([]byte{1}), gst.ErrFlushing)
		assert.ErrorIs(t, src.EndOfStream(), gst.ErrFlushing)
		shutdown(t, p)
	})
	t.Run("not linked", func(t *testing.T) {
		src, err := gst.Make("appsrc", "")
		require.NoError(t, err)
		_, err = src.SetState(gst.StatePlaying)
		require.NoError(t, err)

		err = gst.AppSrcOf(src).PushBuffer([]byte{1})
		var fe *gst.FlowError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, gst.FlowNotLinked, fe.Flow)

		_, err = src.SetState(gst.StateNull)
		require.NoError(t, err)
		assert.NoError(t, src.Dispose())
	})
	t.Run("after end of stream", func(t *testing.T) {
		p, src, sink := endpoints(t, "appsrc name=src ! appsink name=sink")
		_, err := p.SetState(gst.StatePlaying)
		require.NoError(t, err)
		require.NoError(t, src.EndOfStream())
		assert.ErrorIs(t, src.PushBuffer([]byte{1}), gst.ErrEndOfStream)
		_, err = sink.PullBuffer()
		assert.ErrorIs(t, err, gst.ErrEndOfStream)
		shutdown(t, p)
	})
}

func TestNeedData(t *testing.T) {
	p, src, sink := endpoints(t, "appsrc name=src block-size=16 ! appsink name=sink")
	lengths := make(chan int, 1)
	src.ConnectNeedData(func(length int) {
		select {
		case lengths <- length:
		default:
		}
	})
	_, err := p.SetState(gst.StatePlaying)
	require.NoError(t, err)
	assert.Equal(t, 16, <-lengths)

	require.NoError(t, src.PushBuffer([]byte{1}))
	assert.Equal(t, 16, <-lengths)
	_, err = sink.PullBuffer()
	require.NoError(t, err)

	src.DisconnectNeedData()
	shutdown(t, p)
}

func TestNeedDataReplace(t *testing.T) {
	p, src, sink := endpoints(t, "appsrc name=src ! appsink name=sink")
	var (
		mu       sync.Mutex
		replaced bool
		late     bool
	)
	first := make(chan struct{}, 1)
	src.ConnectNeedData(func(int) {
		mu.Lock()
		late = late || replaced
		mu.Unlock()
		select {
		case first <- struct{}{}:
		default:
		}
	})
	_, err := p.SetState(gst.StatePlaying)
	require.NoError(t, err)
	<-first

	second := make(chan struct{}, 1)
	src.ConnectNeedData(func(int) {
		select {
		case second <- struct{}{}:
		default:
		}
	})
	mu.Lock()
	replaced = true
	mu.Unlock()

	for i := 0; i < 3; i++ {
		require.NoError(t, src.PushBuffer([]byte{byte(i)}))
		_, err := sink.PullBuffer()
		require.NoError(t, err)
	}
	<-second
	mu.Lock()
	assert.False(t, late)
	mu.Unlock()
	shutdown(t, p)
}

func TestNeedDataDisconnectFromCallback(t *testing.T) {
	p, src, _ := endpoints(t, "appsrc name=src ! appsink name=sink")
	disconnected := make(chan struct{})
	var once sync.Once
	src.ConnectNeedData(func(int) {
		src.DisconnectNeedData()
		once.Do(func() { close(disconnected) })
	})
	_, err := p.SetState(gst.StatePlaying)
	require.NoError(t, err)
	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("disconnect inside need-data callback did not return")
	}
	shutdown(t, p)
}

func TestLiveSource(t *testing.T) {
	p, src, sink := endpoints(t, "appsrc name=src is-live=true ! appsink name=sink")
	ret, err := p.SetState(gst.StatePaused)
	require.NoError(t, err)
	assert.Equal(t, gst.StateChangeNoPreroll, ret)
	assert.Equal(t, gst.StatePaused, p.State())

	ret, err = p.SetState(gst.StatePlaying)
	require.NoError(t, err)
	assert.Equal(t, gst.StateChangeAsync, ret)

	require.NoError(t, src.PushBuffer([]byte("live")))
	ret, current, _, err := p.GetState(time.Second)
	require.NoError(t, err)
	assert.Equal(t, gst.StateChangeSuccess, ret)
	assert.Equal(t, gst.StatePlaying, current)

	b, err := sink.PullBuffer()
	require.NoError(t, err)
	assert.Equal(t, []byte("live"), b)
	shutdown(t, p)
}

func TestDuration(t *testing.T) {
	p, src, _ := endpoints(t, "appsrc name=src ! appsink name=sink")
	require.NoError(t, src.SetProperty("duration", int64(time.Second)))
	m := p.Bus().PopFiltered(gst.MessageDurationChanged)
	require.NotNil(t, m)
	d, ok := m.ParseDurationChanged()
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)
	assert.Equal(t, "src", m.Source)
	shutdown(t, p)
}
