// Package config loads the gst-launch configuration file.
//
// Settings are read from TOML, missing values keep defaults and the result
// is validated before use. Command line flags override loaded values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel    = "warn"
	defaultLogFormat   = "auto"
	defaultPollTimeout = "100ms"
	defaultBlockSize   = 4096
)

// Logging configures log output.
type Logging struct {
	// Level is a logrus level name.
	Level string `toml:"level"`
	// Format is one of auto, text or json. Auto uses colored text on
	// terminals.
	Format string `toml:"format"`
}

// Bus configures the bus watch.
type Bus struct {
	// PollTimeout is the wait of a single bus poll, like "250ms".
	PollTimeout string `toml:"poll_timeout"`
}

// AppSink holds defaults for the appsink named "sink".
type AppSink struct {
	MaxBuffers int  `toml:"max_buffers"`
	Drop       bool `toml:"drop"`
}

// AppSrc holds defaults for the appsrc named "src".
type AppSrc struct {
	BlockSize int `toml:"block_size"`
}

// Config is the gst-launch configuration.
type Config struct {
	Logging Logging `toml:"logging"`
	Bus     Bus     `toml:"bus"`
	AppSink AppSink `toml:"appsink"`
	AppSrc  AppSrc  `toml:"appsrc"`

	pollTimeout time.Duration
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Bus: Bus{
			PollTimeout: defaultPollTimeout,
		},
		AppSrc: AppSrc{
			BlockSize: defaultBlockSize,
		},
	}
}

// Load reads the configuration file at path. Empty path or missing file
// yield defaults, exists reports whether the file was read.
func Load(path string) (cfg *Config, exists bool, err error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, false, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &c); err != nil {
				return nil, false, fmt.Errorf("parse config %s: %w", path, err)
			}
			exists = true
		}
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	return &c, exists, nil
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Bus.PollTimeout) == "" {
		c.Bus.PollTimeout = defaultPollTimeout
	}
}

// PollTimeout returns the parsed bus poll timeout. It's valid after
// Validate succeeded.
func (c *Config) PollTimeout() time.Duration {
	return c.pollTimeout
}
