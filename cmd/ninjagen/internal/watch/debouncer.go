// Package watch regenerates the build graph and re-runs the executor when
// the project's sources change.
package watch

import (
	"sync"
	"time"

	"github.com/albertocavalcante/ninjagen/pkg/util"
)

// MaxPending is the number of distinct pending paths that forces an
// immediate flush, bounding memory during bulk file creation.
const MaxPending = 1000

// Change is one coalesced file change.
type Change struct {
	Path string
	Type ChangeType
}

// Batch is the set of changes delivered by one flush, sorted by path.
type Batch []Change

// Structural reports whether the batch adds or removes files, which
// changes the set of build steps and requires a new graph.
func (b Batch) Structural() bool {
	for _, c := range b {
		if c.Type != ChangeModified {
			return true
		}
	}
	return false
}

// Debouncer coalesces rapid file events into batches. Events within the
// window reset the timer; the handler runs once the window passes quietly.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]ChangeType
	timer   *time.Timer
	window  time.Duration
	onFlush func(Batch)
	stopped bool
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer(window time.Duration, onFlush func(Batch)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]ChangeType),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a change. A file that was added and then modified within
// one window is reported as added.
func (d *Debouncer) Add(path string, change ChangeType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if prev, ok := d.pending[path]; ok && prev == ChangeAdded && change == ChangeModified {
		change = ChangeAdded
	}
	d.pending[path] = change

	if len(d.pending) >= MaxPending {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
		batch := d.takeLocked()
		d.mu.Unlock()
		d.deliver(batch)
		d.mu.Lock()
		return
	}

	// timer.Stop may lose the race with an already-fired timer; flush then
	// finds the pending set empty or delivers a slightly earlier batch.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()
	d.deliver(batch)
}

// takeLocked empties the pending set. Caller must hold d.mu.
func (d *Debouncer) takeLocked() Batch {
	if len(d.pending) == 0 {
		return nil
	}
	batch := make(Batch, 0, len(d.pending))
	for _, p := range util.SortedKeys(d.pending) {
		batch = append(batch, Change{Path: p, Type: d.pending[p]})
	}
	d.pending = make(map[string]ChangeType)
	return batch
}

// deliver calls the handler outside the lock.
func (d *Debouncer) deliver(batch Batch) {
	if len(batch) > 0 && d.onFlush != nil {
		d.onFlush(batch)
	}
}

// FlushNow delivers pending changes without waiting for the timer.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()
	d.deliver(batch)
}

// Stop stops the debouncer. Pending changes are discarded; the watch loop
// is shutting down and a rebuild would only delay exit.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]ChangeType)
}

// PendingCount returns the number of paths waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
