package gst_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
)

func TestSetProperty(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		property string
		value    interface{}
		expected interface{}
		err      bool
	}{
		{
			name:     "int",
			kind:     "appsink",
			property: "max-buffers",
			value:    5,
			expected: int64(5),
		},
		{
			name:     "int out of range",
			kind:     "queue",
			property: "leaky",
			value:    3,
			err:      true,
		},
		{
			name:     "bool",
			kind:     "appsrc",
			property: "is-live",
			value:    true,
			expected: true,
		},
		{
			name:     "string",
			kind:     "capsfilter",
			property: "caps",
			value:    "audio/x-raw",
			expected: "audio/x-raw",
		},
		{
			name:     "invalid caps",
			kind:     "capsfilter",
			property: "caps",
			value:    "audio/x-raw,rate",
			err:      true,
		},
		{
			name:     "wrong kind",
			kind:     "appsrc",
			property: "is-live",
			value:    "true",
			err:      true,
		},
		{
			name:     "unknown",
			kind:     "identity",
			property: "no-such-property",
			value:    1,
			err:      true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, err := gst.Make(test.kind, "")
			require.NoError(t, err)
			defer e.Dispose()

			err = e.SetProperty(test.property, test.value)
			if test.err {
				var pe *gst.PropertyError
				require.True(t, errors.As(err, &pe), "got %v", err)
				assert.Equal(t, test.property, pe.Property)
				assert.Equal(t, e.Name(), pe.Element)
				return
			}
			require.NoError(t, err)
			v, err := e.Property(test.property)
			require.NoError(t, err)
			assert.Equal(t, test.expected, v)
		})
	}
}

func TestSetPropertyString(t *testing.T) {
	tests := []struct {
		kind     string
		property string
		value    string
		expected interface{}
	}{
		{kind: "fakesrc", property: "num-buffers", value: "10", expected: int64(10)},
		{kind: "fakesrc", property: "num-buffers", value: "0x10", expected: int64(16)},
		{kind: "fakesrc", property: "is-live", value: "yes", expected: true},
		{kind: "fakesrc", property: "is-live", value: "false", expected: false},
		{kind: "taginject", property: "tags", value: "title=x", expected: "title=x"},
	}
	for _, test := range tests {
		t.Run(test.property+"="+test.value, func(t *testing.T) {
			e, err := gst.Make(test.kind, "")
			require.NoError(t, err)
			defer e.Dispose()

			require.NoError(t, e.SetPropertyString(test.property, test.value))
			v, err := e.Property(test.property)
			require.NoError(t, err)
			assert.Equal(t, test.expected, v)
		})
	}
}

func TestPropertyDefaults(t *testing.T) {
	e, err := gst.Make("appsrc", "src")
	require.NoError(t, err)
	defer e.Dispose()

	v, err := e.Property("block-size")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), v)
	v, err = e.Property("name")
	require.NoError(t, err)
	assert.Equal(t, "src", v)

	var names []string
	for _, spec := range e.Properties() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{"block-size", "caps", "duration", "is-live", "name"}, names)
}

func TestSetName(t *testing.T) {
	e, err := gst.Make("identity", "")
	require.NoError(t, err)
	require.NoError(t, e.SetProperty("name", "renamed"))
	assert.Equal(t, "renamed", e.Name())

	b, err := gst.NewBin("")
	require.NoError(t, err)
	require.NoError(t, b.Add(e))
	var pe *gst.PropertyError
	assert.True(t, errors.As(e.SetName("again"), &pe))
	assert.NoError(t, b.Dispose())
}
