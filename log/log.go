// Package log configures the logrus logger shared by all pipelines.
package log

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnvDebug is the environment variable that controls the default level. It
// accepts a boolean or a logrus level name.
const EnvDebug = "GST_DEBUG"

var (
	mu     sync.RWMutex
	level  = logrus.WarnLevel
	logger *logrus.Logger
)

func init() {
	level = ParseLevel(os.Getenv(EnvDebug))
}

// ParseLevel converts the value of EnvDebug into a level. Unknown values
// result in logrus.WarnLevel.
func ParseLevel(v string) logrus.Level {
	v = strings.TrimSpace(v)
	if v == "" {
		return logrus.WarnLevel
	}
	if debug, err := strconv.ParseBool(v); err == nil {
		if debug {
			return logrus.DebugLevel
		}
		return logrus.WarnLevel
	}
	if l, err := logrus.ParseLevel(v); err == nil {
		return l
	}
	return logrus.WarnLevel
}

// GetLogger returns the package logger. It's created on first use with the
// level from the environment.
func GetLogger() *logrus.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(level)
	}
	return logger
}

// SetLogger replaces the package logger.
func SetLogger(l *logrus.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}
