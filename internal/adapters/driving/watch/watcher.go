// Package watch reports changes in the document directories so that
// ingestion can be re-run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lenscore/internal/logger"
)

// DefaultDebounce is the quiet period after the last change before a
// batch is emitted.
const DefaultDebounce = 2 * time.Second

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher closed")

// Watcher observes directory trees and emits debounced change batches.
type Watcher struct {
	dirs     []string
	debounce time.Duration

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New creates a watcher over dirs. debounce <= 0 uses DefaultDebounce.
func New(dirs []string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dirs: dirs, debounce: debounce}
}

// Watch starts observing. Each value received is the sorted set of paths
// changed since the previous batch. The channel is closed when ctx ends.
func (w *Watcher) Watch(ctx context.Context) (<-chan []string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if w.fsw != nil {
		return nil, errors.New("watcher already running")
	}
	if len(w.dirs) == 0 {
		return nil, errors.New("no directories to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range w.dirs {
		if err := addTree(fsw, dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	w.fsw = fsw

	out := make(chan []string)
	go w.loop(ctx, fsw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- []string) {
	defer close(out)
	defer func() { _ = w.Close() }()

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !handleEvent(fsw, event) {
				continue
			}
			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch: %v", err)

		case <-fire:
			fire = nil
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			sort.Strings(batch)
			pending = make(map[string]bool)

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// handleEvent reports whether event is a change to a document. New
// directories are added to the watch and count as a change.
func handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	if hidden(event.Name) {
		return false
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if fsw != nil {
				if err := addTree(fsw, event.Name); err != nil {
					logger.Warn("Watch %s: %v", event.Name, err)
				}
			}
		}
	}
	return true
}

// addTree watches root and every non-hidden directory below it.
func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
