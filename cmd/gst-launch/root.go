package main

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pipelined.dev/gst"
	"pipelined.dev/gst/internal/config"
	"pipelined.dev/gst/log"
)

type commandContext struct {
	configFlag string
	verbose    bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     *logrus.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = newLogger(cfg, c.verbose, os.Stderr)
		log.SetLogger(c.logger)
		gst.SetLogger(c.logger)
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	rootCmd := &cobra.Command{
		Use:           "gst-launch",
		Short:         "Build and run media pipelines",
		Version:       gst.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log debug output and dump bus messages")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	return rootCmd
}

// newLogger creates logger from configuration. GST_DEBUG overrides the
// configured level and verbose flag overrides both.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	if v, ok := os.LookupEnv(log.EnvDebug); ok {
		level = log.ParseLevel(v)
	}
	if verbose {
		level = logrus.DebugLevel
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	switch cfg.Logging.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			ForceColors:   isTerminal(w),
			DisableColors: !isTerminal(w),
		})
	}
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
