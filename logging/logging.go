// Package logging provides the console logger for the harness and the
// per-run artifact files written for each test run.
package logging

import (
	"io"
	"log/slog"
)

// NewLogger creates the root console logger. It does not set the global
// logger, so callers can keep isolated instances.
func NewLogger(levelStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
