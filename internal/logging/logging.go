package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the global logrus logger.
// format is "text" or "json"; level is any logrus level name.
func Init(level, format string) error {
	return Configure(logrus.StandardLogger(), os.Stderr, level, format)
}

// Configure applies level and format to the given logger
func Configure(logger *logrus.Logger, out io.Writer, level, format string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format: %s (supported: text, json)", format)
	}

	logger.SetOutput(out)
	logger.SetLevel(lvl)
	return nil
}

// Component returns an entry tagged with the component name
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}

// Discard returns an entry that writes nowhere. Used by tests and library defaults.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
