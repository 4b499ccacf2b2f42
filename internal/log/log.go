// Package log provides structured logging with kubectl-style verbosity
// levels for ninjagen. Everything is written to stderr; stdout belongs to
// the build executor.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger    atomic.Pointer[slog.Logger]
	level     = new(slog.LevelVar)
	verbosity atomic.Int32
	format    atomic.Value // string
)

func init() {
	level.Set(slog.LevelWarn)
	verbosity.Store(VerbosityWarn)
	format.Store("text")
	logger.Store(slog.New(NewHandler(HandlerOptions{Level: level, Format: "text"})))
}

// Init installs the global logger. Call once after flags are parsed.
func Init(v int, f string) {
	InitWithOutput(v, f, os.Stderr)
}

// InitWithOutput is Init with an explicit destination.
func InitWithOutput(v int, f string, w io.Writer) {
	if f == "" {
		f = "text"
	}
	SetVerbosity(v)
	format.Store(f)

	l := slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: f,
		Output: w,
	}))
	logger.Store(l)
	slog.SetDefault(l)
}

// SetVerbosity changes verbosity at runtime.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))
}

// Verbosity returns the current verbosity level.
func Verbosity() int {
	return int(verbosity.Load())
}

// Format returns the active handler format ("text" or "json").
func Format() string {
	return format.Load().(string)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logger.Load()
}

func Error(msg string, args ...any) { logger.Load().Error(msg, args...) }
func Warn(msg string, args ...any)  { logger.Load().Warn(msg, args...) }
func Info(msg string, args ...any)  { logger.Load().Info(msg, args...) }
func Debug(msg string, args ...any) { logger.Load().Debug(msg, args...) }

// Trace logs at LevelTrace (v=4).
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// V returns a logger that only logs if verbosity >= v.
//
//	log.V(3).Info("resolved", "package", name)
func V(v int) *slog.Logger {
	if int(verbosity.Load()) >= v {
		return logger.Load()
	}
	return slog.New(discardHandler{})
}

// With returns a logger with additional context.
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}

// Component returns a logger tagged with a component name.
func Component(name string) *slog.Logger {
	return logger.Load().With("component", name)
}
