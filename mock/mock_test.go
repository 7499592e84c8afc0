package mock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
	"pipelined.dev/gst/mock"
)

func TestElement(t *testing.T) {
	m := &mock.Element{Hooks: mock.Hooks{FailOn: gst.PausedToPlaying}}
	r, err := mock.Registry(m.Factory("mockelement"))
	require.NoError(t, err)

	e, err := r.Make("mockelement", "")
	require.NoError(t, err)
	assert.Equal(t, "mockelement0", e.Name())
	assert.NotNil(t, e.StaticPad("sink"))
	assert.NotNil(t, e.StaticPad("src"))

	_, err = e.SetState(gst.StatePlaying)
	var sce *gst.StateChangeError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, gst.PausedToPlaying, sce.Transition)
	assert.Equal(t, gst.StatePaused, e.State())

	_, err = e.SetState(gst.StateNull)
	require.NoError(t, err)
	assert.Equal(t, []gst.StateChange{
		gst.NullToReady,
		gst.ReadyToPaused,
		gst.PausedToPlaying,
		gst.PausedToReady,
		gst.ReadyToNull,
	}, m.Transitions())
	assert.NoError(t, e.Dispose())
}

func TestSink(t *testing.T) {
	el := &mock.Element{}
	sink := &mock.Sink{}
	r, err := mock.Registry(el.Factory("mockelement"), sink.Factory("mocksink"))
	require.NoError(t, err)

	p, err := r.ParsePipeline("fakesrc num-buffers=3 sizemax=10 ! mockelement ! mocksink")
	require.NoError(t, err)
	_, err = p.SetState(gst.StatePlaying)
	require.NoError(t, err)

	m, err := p.Bus().TimedPopFiltered(time.Second, gst.MessageEOS|gst.MessageError)
	require.NoError(t, err)
	assert.Equal(t, gst.MessageEOS, m.Type)

	buffers, bytes := sink.Count()
	assert.Equal(t, 3, buffers)
	assert.Equal(t, 30, bytes)
	assert.Len(t, sink.Buffer(), 30)
	assert.True(t, sink.EOS())
	buffers, _ = el.Count()
	assert.Equal(t, 3, buffers)

	_, err = p.SetState(gst.StateNull)
	require.NoError(t, err)
	assert.NoError(t, p.Dispose())
}

func TestRegistryDuplicate(t *testing.T) {
	_, err := mock.Registry((&mock.Sink{}).Factory("appsink"))
	assert.ErrorIs(t, err, gst.ErrDuplicateName)
}
