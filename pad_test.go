package gst_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
)

func TestLink(t *testing.T) {
	tests := []struct {
		name        string
		description []string
		negotiated  bool
	}{
		{
			name:        "any caps",
			description: []string{"appsrc", "identity", "appsink"},
			negotiated:  true,
		},
		{
			name:        "matching caps",
			description: []string{"appsrc caps=audio/x-raw,rate=44100", "identity", "appsink caps=audio/x-raw"},
			negotiated:  true,
		},
		{
			name:        "different media",
			description: []string{"appsrc caps=audio/x-raw", "identity", "appsink caps=video/x-raw"},
		},
		{
			name:        "different field",
			description: []string{"appsrc caps=audio/x-raw,rate=44100", "queue", "appsink caps=audio/x-raw,rate=48000"},
		},
		{
			name:        "caps filter",
			description: []string{"appsrc", "capsfilter caps=audio/x-raw,channels=2", "appsink caps=audio/x-raw,channels=1"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := gst.NewPipeline("")
			require.NoError(t, err)
			var elements []*gst.Element
			for i, d := range test.description {
				e, err := gst.ParseLaunch(d)
				require.NoError(t, err, "element %d", i)
				require.NoError(t, p.Add(e))
				elements = append(elements, e)
			}
			err = gst.LinkMany(elements...)
			if test.negotiated {
				assert.NoError(t, err)
			} else {
				var ne *gst.NegotiationError
				assert.True(t, errors.As(err, &ne), "got %v", err)
			}
			assert.NoError(t, p.Dispose())
		})
	}
}

func TestLinkDifferentParents(t *testing.T) {
	src, err := gst.Make("fakesrc", "")
	require.NoError(t, err)
	sink, err := gst.Make("fakesink", "")
	require.NoError(t, err)
	b, err := gst.NewBin("")
	require.NoError(t, err)
	require.NoError(t, b.Add(sink))

	var ne *gst.NegotiationError
	assert.True(t, errors.As(gst.Link(src, sink), &ne))
	assert.False(t, src.StaticPad("src").IsLinked())

	assert.NoError(t, src.Dispose())
	assert.NoError(t, b.Dispose())
}

func TestPadLink(t *testing.T) {
	src := gst.NewPad("src", gst.PadSrc, nil)
	sink := gst.NewPad("sink", gst.PadSink, nil)

	var ne *gst.NegotiationError
	assert.True(t, errors.As(sink.Link(src), &ne))

	require.NoError(t, src.Link(sink))
	assert.Same(t, sink, src.Peer())
	assert.Same(t, src, sink.Peer())
	assert.True(t, errors.As(src.Link(sink), &ne))

	src.Unlink()
	assert.False(t, src.IsLinked())
	assert.False(t, sink.IsLinked())

	// inactive pads don't pass data
	assert.Equal(t, gst.FlowFlushing, src.Push(gst.NewBuffer(1)))
}

func TestTeeRequestPads(t *testing.T) {
	p, err := gst.ParsePipeline("fakesrc num-buffers=4 sizemax=8 ! tee name=t ! queue ! fakesink name=a t. ! queue ! appsink name=b")
	require.NoError(t, err)
	tee, err := p.GetByName("t")
	require.NoError(t, err)
	assert.NotNil(t, tee.StaticPad("src_0"))
	assert.NotNil(t, tee.StaticPad("src_1"))

	sink, err := p.GetByName("b")
	require.NoError(t, err)
	_, err = p.SetState(gst.StatePlaying)
	require.NoError(t, err)

	appsink := gst.AppSinkOf(sink)
	for i := 0; i < 4; i++ {
		b, err := appsink.PullBuffer()
		require.NoError(t, err)
		assert.Len(t, b, 8)
	}
	_, err = appsink.PullBuffer()
	assert.ErrorIs(t, err, gst.ErrEndOfStream)

	m, err := p.Bus().TimedPopFiltered(-1, gst.MessageEOS|gst.MessageError)
	require.NoError(t, err)
	assert.Equal(t, gst.MessageEOS, m.Type)

	_, err = p.SetState(gst.StateNull)
	require.NoError(t, err)
	assert.NoError(t, p.Dispose())
}
