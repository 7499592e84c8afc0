package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateBus(); err != nil {
		return err
	}
	if c.AppSink.MaxBuffers < 0 {
		return errors.New("appsink.max_buffers must not be negative")
	}
	if c.AppSrc.BlockSize <= 0 {
		return errors.New("appsrc.block_size must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
		return nil
	}
	return fmt.Errorf("logging.format must be auto, text or json, got %q", c.Logging.Format)
}

func (c *Config) validateBus() error {
	d, err := time.ParseDuration(c.Bus.PollTimeout)
	if err != nil {
		return fmt.Errorf("bus.poll_timeout: %w", err)
	}
	if d <= 0 {
		return errors.New("bus.poll_timeout must be positive")
	}
	c.pollTimeout = d
	return nil
}
