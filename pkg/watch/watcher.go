// Package watch re-runs analysis when C/C++ sources under a directory change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/mcuscope/pkg/config"
)

// Watcher monitors a directory tree and reports batches of changed source
// files. A write that leaves the content unchanged is not reported.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	path      string
	callback  func(changed []string)
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	hashes  map[string]uint64
}

// NewWatcher creates a watcher for path. A non-positive debounce defaults
// to 500ms.
func NewWatcher(path string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  debounce,
		path:      path,
		logger:    slog.New(slog.DiscardHandler),
		pending:   make(map[string]time.Time),
		hashes:    make(map[string]uint64),
	}, nil
}

// SetCallback sets the function called with each batch of changed files.
// Paths are absolute and sorted.
func (w *Watcher) SetCallback(cb func(changed []string)) {
	w.callback = cb
}

// SetLogger sets the logger for watch events and errors.
func (w *Watcher) SetLogger(l *slog.Logger) {
	if l != nil {
		w.logger = l
	}
}

// Start registers every directory under the root, records the initial
// content hash of each source file and processes events until ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.path && w.excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if w.isSource(path) {
			if sum, ok := hashFile(path); ok {
				w.mu.Lock()
				w.hashes[path] = sum
				w.mu.Unlock()
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Info("watching for changes", "path", w.path, "dirs", len(w.fsWatcher.WatchList()))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) excludedDir(name string) bool {
	for _, excluded := range w.config.Exclude.Dirs {
		if name == excluded {
			return true
		}
	}
	return false
}

// isSource applies the configured exclusions to path relative to the root.
func (w *Watcher) isSource(path string) bool {
	rel, err := filepath.Rel(w.path, path)
	if err != nil {
		rel = path
	}
	return !w.config.ShouldExclude(rel)
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excludedDir(info.Name()) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Warn("cannot watch directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if !w.isSource(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending takes the files that have been quiet for the debounce
// period, drops those whose content hash did not change and hands the rest
// to the callback as one batch.
func (w *Watcher) processPending() {
	w.mu.Lock()
	now := time.Now()
	var changed []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) < w.debounce {
			continue
		}
		delete(w.pending, path)
		if w.contentChanged(path) {
			changed = append(changed, path)
		}
	}
	w.mu.Unlock()

	if len(changed) == 0 || w.callback == nil {
		return
	}
	sort.Strings(changed)
	w.logger.Debug("files changed", "count", len(changed))
	w.callback(changed)
}

// contentChanged updates the recorded hash of path and reports whether it
// differs from the previous one. A file that disappeared counts as changed
// when it had been seen before. Callers hold w.mu.
func (w *Watcher) contentChanged(path string) bool {
	prev, seen := w.hashes[path]
	sum, ok := hashFile(path)
	if !ok {
		delete(w.hashes, path)
		return seen
	}
	w.hashes[path] = sum
	return !seen || prev != sum
}

func hashFile(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently registered.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
