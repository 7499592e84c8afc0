package gst_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
)

func TestParseLaunch(t *testing.T) {
	tests := []struct {
		desc     string
		kind     string
		children []string
	}{
		{
			desc: "identity name=single",
			kind: "identity",
		},
		{
			desc:     "fakesrc name=a ! fakesink name=b",
			kind:     "pipeline",
			children: []string{"a", "b"},
		},
		{
			desc:     "fakesrc name=a ! audio/x-raw,rate=8000 ! fakesink name=b",
			kind:     "pipeline",
			children: []string{"a", "capsfilter", "b"},
		},
		{
			desc:     "fakesrc name=a ! fakesink name=b  fakesrc name=c ! fakesink name=d",
			kind:     "pipeline",
			children: []string{"a", "b", "c", "d"},
		},
		{
			desc:     `fakesrc name=a ! tee name=t ! fakesink name=b t. ! queue name="q q" ! fakesink name=c`,
			kind:     "pipeline",
			children: []string{"a", "t", "b", "q q", "c"},
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			e, err := gst.ParseLaunch(test.desc)
			require.NoError(t, err)
			assert.Equal(t, test.kind, e.Kind())
			if b := gst.BinOf(e); b != nil {
				children := b.Children()
				require.Len(t, children, len(test.children))
				for i, name := range test.children {
					if name == "capsfilter" {
						assert.Equal(t, name, children[i].Kind())
						continue
					}
					assert.Equal(t, name, children[i].Name())
				}
			}
			assert.NoError(t, e.Dispose())
		})
	}
}

func TestParsePipelineWraps(t *testing.T) {
	p, err := gst.ParsePipeline("identity name=single")
	require.NoError(t, err)
	e, err := p.GetByName("single")
	require.NoError(t, err)
	assert.Equal(t, "identity", e.Kind())
	assert.NoError(t, p.Dispose())

	p, err = gst.ParsePipeline("pipeline name=top")
	require.NoError(t, err)
	assert.Equal(t, "top", p.Name())
	assert.Empty(t, p.Children())
	assert.NoError(t, p.Dispose())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		desc  string
		cause interface{}
	}{
		{desc: ""},
		{desc: "   "},
		{desc: "! identity"},
		{desc: "identity ! ! identity"},
		{desc: "identity !"},
		{desc: "name=x identity"},
		{desc: `identity name="unterminated`},
		{desc: "identity ! missing."},
		{desc: "fakesrc ! no-such-kind", cause: new(*gst.NotFoundError)},
		{desc: "identity no-such-property=1", cause: new(*gst.PropertyError)},
		{desc: "fakesrc num-buffers=many", cause: new(*gst.PropertyError)},
		{desc: "appsrc caps=audio/x-raw ! appsink caps=video/x-raw", cause: new(*gst.NegotiationError)},
		{desc: "fakesrc ! fakesink ! fakesink", cause: new(*gst.NegotiationError)},
		{desc: "fakesrc name=a ! fakesink name=a", cause: gst.ErrDuplicateName},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			e, err := gst.ParseLaunch(test.desc)
			assert.Nil(t, e)
			var pe *gst.ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, test.desc, pe.Description)
			switch cause := test.cause.(type) {
			case nil:
			case error:
				assert.ErrorIs(t, err, cause)
			default:
				assert.True(t, errors.As(err, cause), "got %v", err)
			}
		})
	}
}
