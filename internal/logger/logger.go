// Package logger provides console logging for xtctx.
//
// Messages go through log/slog with a clog console handler. Warnings and
// errors are always printed; debug and info messages only appear when
// verbose mode is enabled via the --verbose flag.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/m-mizutani/clog"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
	base              = newLogger(os.Stderr, false)
)

func newLogger(w io.Writer, v bool) *slog.Logger {
	level := slog.LevelWarn
	if v {
		level = slog.LevelDebug
	}

	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(level),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)
	return slog.New(handler)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = newLogger(output, v)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger(w, verbose)
}

// Slog returns the underlying structured logger.
func Slog() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

func emit(level slog.Level, format string, args []any) {
	mu.Lock()
	defer mu.Unlock()
	if !base.Enabled(context.Background(), level) {
		return
	}
	base.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	emit(slog.LevelDebug, format, args)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	emit(slog.LevelInfo, "=== %s ===", []any{name})
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	emit(slog.LevelInfo, format, args)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	emit(slog.LevelWarn, format, args)
}

// Error prints an error message.
func Error(format string, args ...any) {
	emit(slog.LevelError, format, args)
}
