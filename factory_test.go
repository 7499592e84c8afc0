package gst_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
)

func TestMakeAll(t *testing.T) {
	for _, f := range gst.DefaultRegistry.Factories() {
		t.Run(f.Name, func(t *testing.T) {
			e, err := gst.Make(f.Name, "named")
			require.NoError(t, err)
			assert.Equal(t, "named", e.Name())
			assert.Equal(t, f.Name, e.Kind())
			assert.Equal(t, gst.StateNull, e.State())
			assert.Nil(t, e.Parent())
			assert.NotEmpty(t, e.UID())
			assert.NoError(t, e.Dispose())
		})
	}
}

func TestMakeDefaultName(t *testing.T) {
	r := gst.NewRegistry()
	require.NoError(t, r.Register(gst.Factory{
		Name: "dummy",
		New: func(*gst.Element) (gst.ElementImpl, error) {
			return nil, nil
		},
	}))
	for _, expected := range []string{"dummy0", "dummy1", "dummy2"} {
		e, err := r.Make("dummy", "")
		require.NoError(t, err)
		assert.Equal(t, expected, e.Name())
		assert.NoError(t, e.Dispose())
	}
}

func TestMakeErrors(t *testing.T) {
	_, err := gst.Make("no-such-kind", "")
	var nfe *gst.NotFoundError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "factory", nfe.Kind)
	assert.Equal(t, "no-such-kind", nfe.Name)

	r := gst.NewRegistry()
	construct := errors.New("construct failed")
	require.NoError(t, r.Register(gst.Factory{
		Name: "broken",
		New: func(*gst.Element) (gst.ElementImpl, error) {
			return nil, construct
		},
	}))
	_, err = r.Make("broken", "")
	assert.ErrorIs(t, err, construct)

	err = r.Register(gst.Factory{Name: "broken", New: func(*gst.Element) (gst.ElementImpl, error) { return nil, nil }})
	assert.ErrorIs(t, err, gst.ErrDuplicateName)
	assert.Error(t, r.Register(gst.Factory{Name: "nameless"}))
}

func TestFactoryFlags(t *testing.T) {
	tests := []struct {
		kind   string
		source bool
		sink   bool
	}{
		{kind: "appsrc", source: true},
		{kind: "fakesrc", source: true},
		{kind: "appsink", sink: true},
		{kind: "fakesink", sink: true},
		{kind: "identity"},
		{kind: "queue"},
	}
	for _, test := range tests {
		t.Run(test.kind, func(t *testing.T) {
			e, err := gst.Make(test.kind, "")
			require.NoError(t, err)
			assert.Equal(t, test.source, e.IsSource())
			assert.Equal(t, test.sink, e.IsSink())
			assert.NoError(t, e.Dispose())
		})
	}
}
