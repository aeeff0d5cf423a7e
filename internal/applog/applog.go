// Package applog builds the slog loggers used by the binaries.
package applog

import (
	"errors"
	"io"
	"log/slog"
	"strings"
)

var (
	ErrInvalidLevel  = errors.New("invalid log level: must be 'debug', 'info', 'warn', or 'error'")
	ErrInvalidFormat = errors.New("invalid log format: must be 'text' or 'json'")
)

// ParseLevel parses a lowercase level name. An empty name means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, ErrInvalidLevel
	}
}

// ValidateFormat reports whether s names a supported handler.
// An empty name means text.
func ValidateFormat(s string) error {
	switch strings.ToLower(s) {
	case "", "text", "json":
		return nil
	default:
		return ErrInvalidFormat
	}
}

// New creates a logger writing to w. It does not set the default logger.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err = ValidateFormat(format); err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: l}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}
