package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/gst"
	"pipelined.dev/gst/internal/config"
)

const (
	srcName  = "src"
	sinkName = "sink"
)

type runOptions struct {
	stdin   bool
	stdout  bool
	verbose bool
}

// stats is the summary of a run.
type stats struct {
	read        uint64
	written     uint64
	runningTime time.Duration
}

func (s stats) String() string {
	return fmt.Sprintf("running time %v, read %s, written %s",
		s.runningTime.Round(time.Millisecond),
		humanize.Bytes(s.read),
		humanize.Bytes(s.written),
	)
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run DESCRIPTION...",
		Short: "Run a pipeline until end of stream or error",
		Long: "Run a pipeline built from the description. With --stdin standard input\n" +
			"is pushed into the appsrc named \"src\", with --stdout the data of the\n" +
			"appsink named \"sink\" is written to standard output.",
		Example: "  gst-launch run fakesrc num-buffers=100 ! queue ! fakesink\n" +
			"  gst-launch run --stdin --stdout appsrc name=src ! identity ! appsink name=sink",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts.verbose = ctx.verbose
			var (
				in  io.Reader
				out io.Writer
			)
			if opts.stdin {
				in = cmd.InOrStdin()
			}
			if opts.stdout {
				out = cmd.OutOrStdout()
			}
			s, err := runPipeline(cmd.Context(), cfg, ctx.logger, strings.Join(args, " "), in, out, opts.verbose)
			fmt.Fprintf(cmd.ErrOrStderr(), "Execution ended: %v\n", s)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Push standard input into appsrc \""+srcName+"\"")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Write appsink \""+sinkName+"\" data to standard output")
	return cmd
}

// runPipeline plays the pipeline until end of stream. Nil in and out
// disable the endpoints.
func runPipeline(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, desc string, in io.Reader, out io.Writer, verbose bool) (stats, error) {
	var s stats
	p, err := gst.ParsePipeline(desc)
	if err != nil {
		return s, err
	}
	defer func() {
		if err := p.Dispose(); err != nil {
			logger.WithError(err).Warn("dispose pipeline")
		}
	}()

	var (
		src  *gst.AppSrc
		sink *gst.AppSink
	)
	if in != nil {
		if src, err = appSrc(p, cfg); err != nil {
			return s, err
		}
	}
	if out != nil {
		if sink, err = appSink(p, cfg); err != nil {
			return s, err
		}
	}

	if _, err := p.SetState(gst.StatePlaying); err != nil {
		_, _ = p.SetState(gst.StateNull)
		return s, err
	}
	logger.Infof("%s is playing", p.Name())

	g, gctx := errgroup.WithContext(ctx)
	if src != nil {
		g.Go(func() error {
			n, err := feed(gctx, src, in, cfg.AppSrc.BlockSize)
			s.read = n
			return err
		})
	}
	if sink != nil {
		g.Go(func() error {
			n, err := drain(sink, out)
			s.written = n
			return err
		})
	}
	watchErr := watch(gctx, p, cfg.PollTimeout(), logger, verbose)

	s.runningTime = p.RunningTime()
	// stopping unblocks feeder and drainer
	_, stopErr := p.SetState(gst.StateNull)
	groupErr := g.Wait()
	return s, errors.Join(watchErr, groupErr, stopErr)
}

func appSrc(p *gst.Pipeline, cfg *config.Config) (*gst.AppSrc, error) {
	e, err := p.GetByName(srcName)
	if err != nil {
		return nil, err
	}
	src := gst.AppSrcOf(e)
	if src == nil {
		return nil, fmt.Errorf("element %q is %s, not appsrc", srcName, e.Kind())
	}
	if err := src.SetProperty("block-size", cfg.AppSrc.BlockSize); err != nil {
		return nil, err
	}
	return src, nil
}

func appSink(p *gst.Pipeline, cfg *config.Config) (*gst.AppSink, error) {
	e, err := p.GetByName(sinkName)
	if err != nil {
		return nil, err
	}
	sink := gst.AppSinkOf(e)
	if sink == nil {
		return nil, fmt.Errorf("element %q is %s, not appsink", sinkName, e.Kind())
	}
	if err := sink.SetMaxBuffers(cfg.AppSink.MaxBuffers); err != nil {
		return nil, err
	}
	if err := sink.SetProperty("drop", cfg.AppSink.Drop); err != nil {
		return nil, err
	}
	return sink, nil
}

// feed pushes data from r into the source until r is exhausted. Reads
// happen on a separate goroutine, because a blocked reader cannot be
// interrupted when the pipeline stops.
func feed(ctx context.Context, src *gst.AppSrc, r io.Reader, blockSize int) (uint64, error) {
	var (
		total   uint64
		chunks  = make(chan []byte)
		readErr = make(chan error, 1)
		done    = make(chan struct{})
	)
	defer close(done)
	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, blockSize)
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-done:
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return total, nil
		case p, ok := <-chunks:
			if !ok {
				select {
				case err := <-readErr:
					return total, fmt.Errorf("read input: %w", err)
				default:
				}
				return total, stopped(src.EndOfStream())
			}
			if err := src.PushBuffer(p); err != nil {
				return total, stopped(err)
			}
			total += uint64(len(p))
		}
	}
}

// drain writes all buffers of the sink to w.
func drain(sink *gst.AppSink, w io.Writer) (uint64, error) {
	var total uint64
	for {
		p, err := sink.PullBuffer()
		switch {
		case errors.Is(err, gst.ErrEndOfStream):
			return total, nil
		case err != nil:
			return total, stopped(err)
		}
		n, err := w.Write(p)
		total += uint64(n)
		if err != nil {
			return total, fmt.Errorf("write output: %w", err)
		}
	}
}

// stopped ignores errors caused by pipeline shutdown.
func stopped(err error) error {
	if errors.Is(err, gst.ErrFlushing) {
		return nil
	}
	return err
}

// watch polls the bus until end of stream, error message or cancellation.
func watch(ctx context.Context, p *gst.Pipeline, timeout time.Duration, logger logrus.FieldLogger, verbose bool) error {
	bus := p.Bus()
	logger = logger.WithField("bus", bus.UID())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		m, err := bus.TimedPopFiltered(timeout, gst.MessageAny)
		if errors.Is(err, gst.ErrTimeout) {
			continue
		}
		if verbose {
			logger.Debugf("%v from %s: %s", m.Type, m.Source, spew.Sdump(m.Payload()))
		}
		switch m.Type {
		case gst.MessageEOS:
			logger.Info("end of stream")
			return nil
		case gst.MessageError:
			err, debug, _ := m.ParseError()
			return fmt.Errorf("error from %s: %w (%s)", m.Source, err, debug)
		case gst.MessageWarning:
			err, debug, _ := m.ParseWarning()
			logger.WithError(err).Warnf("warning from %s: %s", m.Source, debug)
		case gst.MessageStateChanged:
			if m.Source == p.Name() {
				oldState, newState, _, _ := m.ParseStateChanged()
				logger.Infof("%s changed state from %v to %v", m.Source, oldState, newState)
			}
		case gst.MessageTag:
			tags, _ := m.ParseTag()
			logger.Infof("tags from %s: %v", m.Source, tags)
		case gst.MessageDurationChanged:
			d, _ := m.ParseDurationChanged()
			logger.Infof("duration of %s changed to %v", m.Source, d)
		default:
			logger.Debugf("%v", m)
		}
	}
}
