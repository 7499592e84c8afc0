package gst_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
)

func TestBinAdd(t *testing.T) {
	b, err := gst.NewBin("bin")
	require.NoError(t, err)
	e, err := gst.Make("identity", "id")
	require.NoError(t, err)
	require.NoError(t, b.Add(e))

	got, err := b.GetByName("id")
	require.NoError(t, err)
	assert.Same(t, e, got)
	assert.Same(t, b, e.Parent())

	other, err := gst.NewBin("other")
	require.NoError(t, err)
	owned, err := gst.Make("identity", "owned")
	require.NoError(t, err)
	require.NoError(t, other.Add(owned))

	tests := []struct {
		name     string
		element  func() *gst.Element
		expected error
	}{
		{
			name: "duplicate name",
			element: func() *gst.Element {
				e, _ := gst.Make("identity", "id")
				return e
			},
			expected: gst.ErrDuplicateName,
		},
		{
			name: "has parent",
			element: func() *gst.Element {
				return owned
			},
			expected: gst.ErrHasParent,
		},
		{
			name: "not null",
			element: func() *gst.Element {
				e, _ := gst.Make("identity", "ready")
				_, _ = e.SetState(gst.StateReady)
				return e
			},
			expected: gst.ErrInvalidState,
		},
		{
			name: "ancestor",
			element: func() *gst.Element {
				return b.Element
			},
			expected: gst.ErrInvalidState,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			el := test.element()
			err := b.Add(el)
			assert.ErrorIs(t, err, test.expected)
			if el != owned && el != b.Element {
				assert.Nil(t, el.Parent())
				_, _ = el.SetState(gst.StateNull)
				assert.NoError(t, el.Dispose())
			}
		})
	}
	assert.Len(t, b.Children(), 1)
	assert.Same(t, other, owned.Parent())
	assert.NoError(t, b.Dispose())
	assert.NoError(t, other.Dispose())
}

func TestGetByNameNested(t *testing.T) {
	p, err := gst.NewPipeline("")
	require.NoError(t, err)
	inner, err := gst.NewBin("inner")
	require.NoError(t, err)
	e, err := gst.Make("identity", "deep")
	require.NoError(t, err)
	require.NoError(t, inner.Add(e))
	require.NoError(t, p.Add(inner.Element))

	got, err := p.GetByName("deep")
	require.NoError(t, err)
	assert.Same(t, e, got)

	_, err = p.GetByName("missing")
	var nfe *gst.NotFoundError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "element", nfe.Kind)
	assert.Equal(t, "missing", nfe.Name)

	assert.NoError(t, p.Dispose())
}

func TestBinRemove(t *testing.T) {
	b, err := gst.NewBin("")
	require.NoError(t, err)
	src, err := gst.Make("fakesrc", "")
	require.NoError(t, err)
	sink, err := gst.Make("fakesink", "")
	require.NoError(t, err)
	require.NoError(t, b.Add(src, sink))
	require.NoError(t, gst.Link(src, sink))
	assert.True(t, src.StaticPad("src").IsLinked())

	require.NoError(t, b.Remove(sink))
	assert.Nil(t, sink.Parent())
	assert.False(t, src.StaticPad("src").IsLinked())

	var nfe *gst.NotFoundError
	assert.True(t, errors.As(b.Remove(sink), &nfe))

	assert.NoError(t, sink.Dispose())
	assert.NoError(t, b.Dispose())
}

func TestBinFlags(t *testing.T) {
	b, err := gst.NewBin("")
	require.NoError(t, err)
	assert.False(t, b.IsSink())

	sink, err := gst.Make("fakesink", "")
	require.NoError(t, err)
	require.NoError(t, b.Add(sink))
	assert.True(t, b.IsSink())
	assert.NotZero(t, b.Flags()&gst.FlagBin)
	assert.NoError(t, b.Dispose())
}

func TestNestedBin(t *testing.T) {
	p, err := gst.NewPipeline("outer")
	require.NoError(t, err)
	inner, err := gst.NewBin("inner")
	require.NoError(t, err)
	src, err := gst.Make("fakesrc", "")
	require.NoError(t, err)
	require.NoError(t, src.SetProperty("num-buffers", 3))
	sink, err := gst.Make("fakesink", "")
	require.NoError(t, err)
	require.NoError(t, inner.Add(src, sink))
	require.NoError(t, gst.Link(src, sink))
	require.NoError(t, p.Add(inner.Element))
	assert.True(t, inner.IsSink())

	_, err = p.SetState(gst.StatePlaying)
	require.NoError(t, err)
	ret, current, _, err := p.GetState(-1)
	require.NoError(t, err)
	assert.Equal(t, gst.StateChangeSuccess, ret)
	assert.Equal(t, gst.StatePlaying, current)
	assert.Equal(t, gst.StatePlaying, inner.State())

	m := waitEOS(t, p)
	assert.Equal(t, gst.MessageEOS, m.Type)
	assert.Equal(t, "outer", m.Source)

	_, err = p.SetState(gst.StateNull)
	require.NoError(t, err)
	assert.NoError(t, p.Dispose())
}
