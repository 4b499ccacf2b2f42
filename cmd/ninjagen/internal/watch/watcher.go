package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// Handler reacts to a batch of changes. Errors are logged and do not stop
// the watch loop.
type Handler func(ctx context.Context, batch Batch) error

// Config configures the watcher.
type Config struct {
	// Root is the project root; events are reported relative to it.
	Root string
	// Dirs are root-relative directories to watch non-recursively.
	Dirs []string
	// Files are root-relative files outside Dirs whose edits count as
	// structural (the project config).
	Files    []string
	Debounce time.Duration
	Handler  Handler
	Logger   *Logger
}

// Watcher watches the project directories and calls the handler with
// debounced batches.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *Logger
	dirs      map[string]bool // absolute watched dirs
	files     map[string]bool // absolute watched files

	ctx context.Context
	// handlerMu serialises handler runs.
	handlerMu sync.Mutex
}

// New creates a watcher. Call Run to start it and Close to release it.
func New(cfg Config) (*Watcher, error) {
	if cfg.Handler == nil {
		return nil, errors.New("watch: handler is required")
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger(LoggerConfig{})
	}

	w := &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		logger:    logger,
		dirs:      make(map[string]bool),
		files:     make(map[string]bool),
	}
	for _, d := range cfg.Dirs {
		w.dirs[filepath.Join(cfg.Root, filepath.FromSlash(d))] = true
	}
	for _, f := range cfg.Files {
		w.files[filepath.Join(cfg.Root, filepath.FromSlash(f))] = true
	}
	return w, nil
}

// Run starts the watch loop. It blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctx = ctx

	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.handleBatch)
	defer w.debouncer.Stop()

	// The root is watched so that source directories created later and
	// edits to the project config are seen.
	if err := w.add(w.config.Root); err != nil {
		return err
	}
	for dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.add(dir); err != nil {
			return err
		}
	}

	w.logger.Ready(w.config.Root, w.WatchedDirs())

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

func (w *Watcher) add(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		if isWatchLimitError(err) {
			return fmt.Errorf("%w for %s: %v\n"+
				"Increase limit with: sudo sysctl fs.inotify.max_user_watches=524288", ErrWatchLimitReached, dir, err)
		}
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return nil
}

func isWatchLimitError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

// handleEvent filters one fsnotify event and feeds the debouncer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	// A watched source directory appeared (or was recreated).
	if w.dirs[path] {
		if event.Has(fsnotify.Create) {
			if err := w.add(path); err != nil {
				w.logger.Error(err)
				return
			}
			w.record(path, ChangeAdded)
		} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			w.record(path, ChangeDeleted)
		}
		return
	}

	parent := filepath.Dir(path)
	if !w.dirs[parent] && !w.files[path] {
		return
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	var change ChangeType
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return
		}
		change = ChangeAdded
	case event.Has(fsnotify.Write):
		change = ChangeModified
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		change = ChangeDeleted
	default:
		return
	}

	// Config edits can change packages or layout.
	if w.files[path] && change == ChangeModified {
		change = ChangeAdded
	}
	w.record(path, change)
}

func (w *Watcher) record(path string, change ChangeType) {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	w.logger.FileChanged(rel, change)
	w.debouncer.Add(rel, change)
}

// handleBatch runs the handler for a flushed batch.
func (w *Watcher) handleBatch(batch Batch) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()

	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	w.logger.Building(batch, batch.Structural())
	start := time.Now()
	if err := w.config.Handler(ctx, batch); err != nil {
		w.logger.Error(err)
		return
	}
	w.logger.Built(time.Since(start))
}

// WatchedDirs returns the root-relative directories being watched.
func (w *Watcher) WatchedDirs() []string {
	dirs := slices.Clone(w.config.Dirs)
	slices.Sort(dirs)
	return dirs
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
