// Package logging configures structured logging for log/slog.
//
// Usage:
//
//	logging.Setup()                               // level from LOG_LEVEL, colored text
//	logging.SetupWith("debug", logging.FormatJSON) // explicit level and format
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Output formats accepted by SetupWith.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup configures colored logging at the level specified by LOG_LEVEL env var
// (default: INFO).
func Setup() {
	SetupWith("", FormatText)
}

// SetupWith installs the default logger. An empty level falls back to
// LOG_LEVEL. Format "json" writes JSON lines to stdout; anything else
// writes colored text to stderr.
func SetupWith(level, format string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	var out io.Writer = os.Stderr
	if format == FormatJSON {
		out = os.Stdout
	}
	logger := slog.New(NewHandler(out, ParseLevel(level), format))
	slog.SetDefault(logger)
	return logger
}

// NewHandler builds the handler used by SetupWith writing to w.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

// ParseLevel maps a level name to a slog.Level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
