// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects level and output format.
type Config struct {
	Level  string
	Format string // "json" or "text"
	Output io.Writer
}

// New returns a logrus logger configured by cfg. An empty level means info.
func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return logger, nil
}
