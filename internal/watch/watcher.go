// Package watch reports changes to test-case documents and fixtures so that
// a run can be repeated when they are edited.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tcrun/internal/resource"
	"tcrun/pkg/logging"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 500 * time.Millisecond

// Operation is the kind of change detected on a file.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Change describes one changed file.
type Change struct {
	Path      string
	Operation Operation
}

// Batch is the set of changes collected during one debounce window.
type Batch struct {
	Changes   []Change
	Timestamp time.Time
}

// Paths returns the changed paths in sorted order.
func (b Batch) Paths() []string {
	paths := make([]string, 0, len(b.Changes))
	for _, c := range b.Changes {
		paths = append(paths, c.Path)
	}
	slices.Sort(paths)
	return paths
}

// Watcher watches a set of directories for document changes.
//
// Events arriving within the debounce interval are merged into a single
// Batch, so saving several fixtures at once triggers one re-run.
type Watcher struct {
	mu sync.Mutex

	dirs     []string
	debounce time.Duration

	watcher *fsnotify.Watcher
	pending map[string]Operation
	timer   *time.Timer
	stopCh  chan struct{}
	running bool
}

// New creates a watcher for dirs. Empty and duplicate entries are ignored.
func New(debounce time.Duration, dirs ...string) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	var clean []string
	for _, d := range dirs {
		if d == "" {
			continue
		}
		d = filepath.Clean(d)
		if !slices.Contains(clean, d) {
			clean = append(clean, d)
		}
	}
	return &Watcher{
		dirs:     clean,
		debounce: debounce,
		pending:  make(map[string]Operation),
	}
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return slices.Clone(w.dirs)
}

// Start begins watching. Batches are sent on changes until ctx is cancelled
// or Stop is called.
func (w *Watcher) Start(ctx context.Context, changes chan<- Batch) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if len(w.dirs) == 0 {
		w.mu.Unlock()
		return errors.New("no directories to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.addTree(dir); err != nil {
			w.Stop()
			return err
		}
	}

	go w.processEvents(ctx, fw, changes)

	logging.Info("Watch", "Watching %s for changes", strings.Join(w.dirs, ", "))
	return nil
}

// addTree watches dir and all of its subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		logging.Debug("Watch", "Watching directory: %s", path)
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context, fw *fsnotify.Watcher, changes chan<- Batch) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return

		case <-w.stopCh:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event, changes)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Error("Watch", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, changes chan<- Batch) {
	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OperationCreate
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				if err := w.addTree(event.Name); err != nil {
					logging.Warn("Watch", "Failed to watch new directory %s: %v", event.Name, err)
				}
			}
			w.mu.Unlock()
			return
		}
	case event.Has(fsnotify.Write):
		op = OperationUpdate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OperationDelete
	default:
		return
	}

	if !resource.IsDocument(event.Name) {
		return
	}
	w.enqueue(event.Name, op, changes)
}

func (w *Watcher) enqueue(path string, op Operation, changes chan<- Batch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if prev, ok := w.pending[path]; ok {
		op = mergeOperations(prev, op)
	}
	w.pending[path] = op

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.flush(changes) })
}

func (w *Watcher) flush(changes chan<- Batch) {
	w.mu.Lock()
	if len(w.pending) == 0 || !w.running {
		w.mu.Unlock()
		return
	}
	batch := Batch{Timestamp: time.Now()}
	for path, op := range w.pending {
		batch.Changes = append(batch.Changes, Change{Path: path, Operation: op})
	}
	slices.SortFunc(batch.Changes, func(a, b Change) int { return strings.Compare(a.Path, b.Path) })
	w.pending = make(map[string]Operation)
	w.mu.Unlock()

	select {
	case changes <- batch:
		logging.Debug("Watch", "Emitted %d change(s)", len(batch.Changes))
	default:
		logging.Warn("Watch", "Change channel full, dropping %d change(s)", len(batch.Changes))
	}
}

// mergeOperations folds two successive operations on the same file.
func mergeOperations(old, new Operation) Operation {
	if old == OperationCreate {
		if new == OperationDelete {
			return OperationDelete
		}
		return OperationCreate
	}
	return new
}

// Stop stops watching. Pending changes are discarded.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]Operation)

	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
		w.watcher = nil
	}
	logging.Info("Watch", "Stopped watching")
	return err
}
