// Package logging builds the slog loggers used by the CLI and the pipeline.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// New returns a logger at the given level (debug, info, warn, error).
// format "json" selects structured output; anything else uses tint.
func New(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	}))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
