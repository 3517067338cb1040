// Package logger provides structured slog loggers for the application.
// All file logs are written in JSON format and rotated by size.
package logger

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a JSON slog.Logger writing to <logDir>/system.log with
// size-based rotation. The directory is created on first write by the
// rotating writer.
func New(logDir string, level slog.Level) *slog.Logger {
	w := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "system.log"),
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// NewCLI creates a text slog.Logger writing to stderr, for one-shot commands
// where a rotated file log would be noise.
func NewCLI(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
