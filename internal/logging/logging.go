// Package logging builds the logrus logger shared by the CLI, server and engine.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const ServiceName = "ortholine"

// New returns a logger writing to stderr. Format is "json" or "text".
func New(level, format string) (*logrus.Logger, error) {
	return NewWithOutput(os.Stderr, level, format)
}

func NewWithOutput(out io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.Out = out
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "", "text":
		log.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	case "json":
		log.Formatter = &logrus.JSONFormatter{}
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	log.AddHook(&DefaultFieldsHook{})
	return log, nil
}

// Discard is a logger for tests and library callers that want silence.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// DefaultFieldsHook stamps every entry with the service name.
type DefaultFieldsHook struct{}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = ServiceName
	return nil
}
