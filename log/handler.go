// Package log builds the slog loggers used by the runtime and maps native
// log priorities onto slog levels.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// HandlerOption configures New.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
	format    Format
	out       io.Writer
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:  slog.LevelInfo,
		format: FormatText,
		out:    os.Stderr,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithFormat selects text or JSON output.
func WithFormat(f Format) HandlerOption {
	return func(c *handlerConfig) {
		c.format = f
	}
}

// WithWriter sets the destination. The default is stderr.
func WithWriter(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		c.out = w
	}
}

// NewHandler creates a slog handler with the given options.
func NewHandler(opts ...HandlerOption) slog.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ho := &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.addSource}
	if cfg.format == FormatJSON {
		return slog.NewJSONHandler(cfg.out, ho)
	}
	return slog.NewTextHandler(cfg.out, ho)
}

// New creates a logger with the given options.
func New(opts ...HandlerOption) *slog.Logger {
	return slog.New(NewHandler(opts...))
}

// ParseLevel parses "debug", "info", "warn" or "error". The empty string is
// info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
