package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// ChangeType represents the type of file change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "+"
	ChangeModified ChangeType = "~"
	ChangeDeleted  ChangeType = "-"
)

// Logger prints watch-mode progress for humans, or as JSON lines for tools.
type Logger struct {
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

// Stats counts what happened during a watch session.
type Stats struct {
	Builds    int
	Failures  int
	StartTime time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// NewLogger creates a Logger. Colour is only used when the writer is a
// terminal.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		now:     time.Now,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready logs that the watcher is armed.
func (l *Logger) Ready(root string, dirs []string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "ready", "root": root, "dirs": dirs})
		return
	}
	l.printf("ninjagen: watching %s in %s\n", strings.Join(dirs, ", "), root)
	l.println("ninjagen: ready")
}

// FileChanged logs a single file event (verbose mode only in text output).
func (l *Logger) FileChanged(path string, change ChangeType) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":  "file_changed",
			"path":   path,
			"change": string(change),
			"time":   l.now().Format(time.RFC3339),
		})
		return
	}
	if l.verbose {
		l.printf("[%s] %s %s\n", l.timestamp(), l.colorize(string(change), change), path)
	}
}

// Building logs the start of a rebuild.
func (l *Logger) Building(batch Batch, regenerate bool) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":      "building",
			"changes":    len(batch),
			"regenerate": regenerate,
			"time":       l.now().Format(time.RFC3339),
		})
		return
	}
	what := "rebuilding"
	if regenerate {
		what = "regenerating graph and rebuilding"
	}
	l.printf("[%s] %s (%d change(s))...\n", l.timestamp(), what, len(batch))
}

// Built logs a finished rebuild.
func (l *Logger) Built(d time.Duration) {
	l.mu.Lock()
	l.stats.Builds++
	l.mu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "built",
			"duration": d.String(),
			"time":     l.now().Format(time.RFC3339),
		})
		return
	}
	l.printf("[%s] %s build finished in %s\n", l.timestamp(), l.colorize("\u2713", ChangeAdded), d.Round(time.Millisecond))
}

// Error logs a failed generation or build.
func (l *Logger) Error(err error) {
	l.mu.Lock()
	l.stats.Failures++
	l.mu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "error",
			"error": err.Error(),
			"time":  l.now().Format(time.RFC3339),
		})
		return
	}
	l.printf("[%s] %s %v\n", l.timestamp(), l.colorize("\u2717", ChangeDeleted), err)
}

// Shutdown logs session statistics.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"builds":   stats.Builds,
			"failures": stats.Failures,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}
	l.println()
	l.printf("ninjagen: shutting down (%d builds, %d failures)\n", stats.Builds, stats.Failures)
}

// Stats returns the current statistics.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Logger) timestamp() string {
	return l.now().Format("15:04:05")
}

func (l *Logger) colorize(s string, change ChangeType) string {
	if l.noColor || !l.isTTY {
		return s
	}

	var color string
	switch change {
	case ChangeAdded:
		color = "\033[32m"
	case ChangeModified:
		color = "\033[33m"
	case ChangeDeleted:
		color = "\033[31m"
	default:
		return s
	}
	return color + s + "\033[0m"
}

func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.println(`{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	l.println(string(data))
}

// Output errors are ignored; the log is informational.
func (l *Logger) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

func (l *Logger) println(args ...any) {
	_, _ = fmt.Fprintln(l.writer, args...)
}
