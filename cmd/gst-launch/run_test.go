package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/gst"
	"pipelined.dev/gst/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, _, err := config.Load("")
	require.NoError(t, err)
	cfg.AppSrc.BlockSize = 100
	return cfg
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRunPipeline(t *testing.T) {
	input := bytes.Repeat([]byte("0123456789"), 1000)
	tests := []struct {
		name    string
		desc    string
		in      io.Reader
		read    uint64
		written uint64
	}{
		{
			name: "no endpoints",
			desc: "fakesrc num-buffers=10 ! queue ! fakesink",
		},
		{
			name:    "copy",
			desc:    "appsrc name=src ! identity ! queue ! appsink name=sink",
			in:      bytes.NewReader(input),
			read:    uint64(len(input)),
			written: uint64(len(input)),
		},
		{
			name:    "empty input",
			desc:    "appsrc name=src ! appsink name=sink",
			in:      bytes.NewReader(nil),
			read:    0,
			written: 0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			var w io.Writer
			if test.in != nil {
				w = &out
			}
			s, err := runPipeline(context.Background(), testConfig(t), testLogger(), test.desc, test.in, w, true)
			require.NoError(t, err)
			assert.Equal(t, test.read, s.read)
			assert.Equal(t, test.written, s.written)
			if test.in != nil {
				assert.Equal(t, int(test.written), out.Len())
			}
		})
	}
}

func TestRunPipelineOutput(t *testing.T) {
	input := []byte("bytes in, bytes out")
	var out bytes.Buffer
	_, err := runPipeline(context.Background(), testConfig(t), testLogger(),
		"appsrc name=src ! taginject tags=title=test ! appsink name=sink",
		bytes.NewReader(input), &out, false)
	require.NoError(t, err)
	assert.Equal(t, input, out.Bytes())
}

func TestRunPipelineErrors(t *testing.T) {
	tests := []struct {
		name string
		desc string
		in   io.Reader
	}{
		{name: "parse", desc: "fakesrc !"},
		{name: "no src", desc: "fakesrc ! appsink name=sink", in: bytes.NewReader(nil)},
		{name: "wrong src", desc: "fakesrc name=src ! appsink name=sink", in: bytes.NewReader(nil)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var w io.Writer
			if test.in != nil {
				w = io.Discard
			}
			_, err := runPipeline(context.Background(), testConfig(t), testLogger(), test.desc, test.in, w, false)
			assert.Error(t, err)
		})
	}
}

func TestRunPipelineCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runPipeline(ctx, testConfig(t), testLogger(), "fakesrc is-live=true ! fakesink", nil, nil, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspect(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect"})
	require.NoError(t, cmd.Execute())
	for _, kind := range []string{"appsrc", "appsink", "queue", "tee"} {
		assert.Contains(t, out.String(), kind)
	}

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", "appsink"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "max-buffers")
	assert.Contains(t, out.String(), "sink")

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", "tee"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "(request)")

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", "appsrc"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1..1073741824")
	assert.Contains(t, out.String(), `""`)

	cmd = newRootCommand()
	cmd.SetArgs([]string{"inspect", "no-such-kind"})
	assert.Error(t, cmd.Execute())
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), gst.VersionString())
}

func TestStats(t *testing.T) {
	s := stats{read: 2048, written: 1 << 20}
	assert.Equal(t, "running time 0s, read 2.0 kB, written 1.0 MB", s.String())
}
