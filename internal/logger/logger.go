// Package logger provides the process-wide log surface. Output goes to
// stderr so command output on stdout stays pipeable; Debug lines only
// appear once SetVerbose(true) has been called.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	verbose atomic.Bool
	base    = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
)

// SetVerbose toggles debug output for the rest of the process.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Debug logs a formatted message when verbose mode is on.
func Debug(format string, args ...any) {
	if !verbose.Load() {
		return
	}
	base.Debug(fmt.Sprintf(format, args...))
}

// Info logs a formatted message.
func Info(format string, args ...any) {
	base.Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted warning.
func Warn(format string, args ...any) {
	base.Warn(fmt.Sprintf(format, args...))
}

// Error logs a formatted error.
func Error(format string, args ...any) {
	base.Error(fmt.Sprintf(format, args...))
}
