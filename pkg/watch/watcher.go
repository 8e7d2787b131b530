// Package watch re-runs a stage when Python sources under a root change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/parser"
)

// DefaultDebounce is how long a file must be quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the root-relative paths that settled in one batch,
// sorted.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher monitors a directory tree for Python source changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	logger    *slog.Logger
	debounce  time.Duration
	root      string
	onChange  ChangeFunc

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for root. A non-positive debounce uses
// DefaultDebounce.
func New(root string, cfg *config.Config, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		logger:    logger,
		debounce:  debounce,
		root:      root,
		pending:   make(map[string]time.Time),
	}, nil
}

// OnChange sets the function called for each settled batch.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.onChange = fn
}

// Run watches until ctx is cancelled. Batches are delivered sequentially
// from a single goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", w.root, "dirs", len(w.fsWatcher.WatchList()))

	ticker := time.NewTicker(w.debounce / 5)
	defer ticker.Stop()

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
			w.logger.Warn("watch error", "err", err)

		case <-ticker.C:
			if ready := w.settled(time.Now()); len(ready) > 0 && w.onChange != nil {
				w.onChange(ctx, ready)
			}
		}
	}
}

// addTree registers root and every non-excluded directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) excluded(path string, isDir bool) bool {
	rel := w.rel(path)
	if isDir {
		// ShouldExclude checks directory components of a file path
		rel += "/x"
	}
	return w.config.ShouldExclude(rel)
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.excluded(event.Name, true) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("watch directory", "path", w.rel(event.Name), "err", err)
				}
			}
			return
		}
	}

	if parser.DetectLanguage(event.Name) == parser.LangUnknown || w.excluded(event.Name, false) {
		return
	}

	w.mu.Lock()
	w.pending[w.rel(event.Name)] = time.Now()
	w.mu.Unlock()
}

// settled removes and returns the paths quiet for at least the debounce
// period as of now.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
