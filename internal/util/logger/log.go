// Package logger holds the process-wide structured logger.
//
// Logging is off by default. Set SESSIONKIT_LOG_LEVEL (debug, info, warn,
// error) or call Configure to turn it on.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnvLogLevel names the environment variable read on first use.
const EnvLogLevel = "SESSIONKIT_LOG_LEVEL"

var (
	log  *Logger
	once sync.Once
)

// Fields is an alias so callers do not need to import logrus directly.
type Fields = logrus.Fields

type Logger struct {
	*logrus.Logger
}

func initialize() {
	once.Do(func() {
		log = &Logger{Logger: logrus.New()}
		// We do not want to log by default
		log.SetOutput(io.Discard)
		log.SetLevel(logrus.PanicLevel)
		if level := os.Getenv(EnvLogLevel); level != "" {
			log.Configure(level, os.Stderr)
		}
	})
}

// Configure enables output to w at the named level. An empty or "off"
// level silences the logger again.
func (l *Logger) Configure(level string, w io.Writer) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "off", "none":
		l.SetOutput(io.Discard)
		l.SetLevel(logrus.PanicLevel)
		return
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.DebugLevel)
	}
	l.SetOutput(w)
	l.WithField("level", l.GetLevel().String()).Debug("Logging enabled")
}

// GetLogger returns the shared Logger, initializing it on first use.
func GetLogger() *Logger {
	initialize()
	return log
}
