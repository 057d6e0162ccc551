// Package logger provides structured logging for wiggum using log/slog.
//
// Hooks run inside the Claude Code host, so diagnostics go to stderr and
// stay silent unless debug logging is on. stdout belongs to the hook
// protocol; nothing here may write to it. Hook verdicts never depend on
// whether logging succeeds.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"wiggum/internal/constants"
)

var (
	log  *slog.Logger
	once sync.Once
)

// Options configures the logger.
type Options struct {
	// Verbose enables debug-level logging. The host invokes hook
	// subcommands without flags, so WIGGUM_DEBUG=1 enables it too.
	Verbose bool
	// Output is the writer for log output (defaults to os.Stderr)
	Output io.Writer
}

// Init initializes the global logger with the given options.
// It is safe to call multiple times; only the first call takes effect.
func Init(opts Options) {
	once.Do(func() {
		output := opts.Output
		if output == nil {
			output = os.Stderr
		}

		level := slog.LevelError
		if opts.Verbose || os.Getenv(constants.EnvDebug) == "1" {
			level = slog.LevelDebug
		}

		log = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	})
}

// Reset resets the logger for testing purposes.
// This should only be used in tests.
func Reset() {
	once = sync.Once{}
	log = nil
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if log != nil {
		log.Debug(msg, args...)
	}
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if log != nil {
		log.Info(msg, args...)
	}
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	if log != nil {
		log.Warn(msg, args...)
	}
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if log != nil {
		log.Error(msg, args...)
	}
}
