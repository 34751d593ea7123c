package app

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/dshills/nflow/internal/config"
)

// newLogger builds the root logger from configuration. An explicit level
// overrides the configured one.
func newLogger(cfg config.LogConfig, level string, out io.Writer) (*log.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	if level == "" {
		level = cfg.Level
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(out, log.Options{
		Prefix:          cfg.Prefix,
		Level:           lvl,
		ReportTimestamp: true,
	}), nil
}

// component returns a child logger tagged with the component name.
func component(l *log.Logger, name string) *log.Logger {
	return l.With("component", name)
}
