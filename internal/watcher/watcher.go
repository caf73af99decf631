// Package watcher reports debounced changes to markdown files in the inbox.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/vonshlovens/notestore/internal/config"
)

// Watcher monitors the inbox directory tree.
type Watcher struct {
	rootPath  string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filter    Filter
	logger    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	started  bool
	done     chan struct{}
}

// NewWatcher creates a watcher for cfg.Path. A nil logger uses slog.Default().
func NewWatcher(cfg config.InboxConfig, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		rootPath:  cfg.Path,
		watcher:   fsWatcher,
		debouncer: NewDebouncer(cfg.DebounceMs),
		filter:    Filter{Ignore: cfg.IgnorePatterns, Include: cfg.IncludePatterns},
		logger:    logger,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the root and every directory below it that is not ignored.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.rootPath, false); err != nil {
		return err
	}

	w.started = true
	go w.processEvents(ctx)

	w.logger.Info("watcher started",
		"path", w.rootPath,
		"ignore_patterns", len(w.filter.Ignore),
		"include_patterns", len(w.filter.Include))
	return nil
}

// Events returns the channel of debounced file events
func (w *Watcher) Events() <-chan FileEvent {
	return w.debouncer.Events()
}

// Flush emits all pending debounced events now.
func (w *Watcher) Flush() {
	w.debouncer.Flush()
}

// Stop closes the watcher and the event channel.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
		if w.started {
			<-w.done
		}
		w.debouncer.Stop()
	})
	return err
}

// addRecursive watches root and its subdirectories. With announce set, files
// already present are reported as created; this covers files written into a
// new directory before it was watched.
func (w *Watcher) addRecursive(root string, announce bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error walking path", "path", path, "error", err)
			return nil
		}

		relPath := w.rel(path)
		if relPath != "." && w.filter.Ignored(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", "path", path, "error", err)
			}
			return nil
		}

		if announce && w.filter.Included(relPath) {
			w.debouncer.Add(relPath, EventCreate)
		}
		return nil
	})
}

func (w *Watcher) rel(path string) string {
	relPath, err := filepath.Rel(w.rootPath, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(relPath)
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			relPath := w.rel(event.Name)
			if w.filter.Ignored(relPath) {
				continue
			}
			w.handleEvent(event, relPath)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, relPath string) {
	info, statErr := os.Stat(event.Name)
	isDir := statErr == nil && info.IsDir()

	switch {
	case event.Has(fsnotify.Create):
		if isDir {
			if err := w.addRecursive(event.Name, true); err != nil {
				w.logger.Warn("failed to add new directory", "path", event.Name, "error", err)
			}
			return
		}
		if w.filter.Included(relPath) {
			w.debouncer.Add(relPath, EventCreate)
		}

	case event.Has(fsnotify.Write):
		if !isDir && w.filter.Included(relPath) {
			w.debouncer.Add(relPath, EventModify)
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The new name of a rename arrives as its own create.
		if w.filter.Included(relPath) {
			w.debouncer.Add(relPath, EventDelete)
		}
	}
}
