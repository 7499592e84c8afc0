package gst

import (
	"sync"

	"github.com/sirupsen/logrus"

	"pipelined.dev/gst/log"
)

var (
	loggerMu sync.RWMutex
	logger   logrus.FieldLogger
)

// SetLogger replaces the logger used by elements created afterwards.
func SetLogger(l logrus.FieldLogger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func getLogger() logrus.FieldLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger == nil {
		return log.GetLogger()
	}
	return logger
}
