// Package watcher bridges fsnotify vault events to the update scheduler.
// Debouncing lives in the scheduler; the watcher only filters and forwards.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches vault directories and invokes callbacks on note changes.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	onChange   func(path string)
	onRemove   func(path string)

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	started  bool
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events).
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher over roots. onChange fires for created or
// written note files, onRemove for removed or renamed-away ones; extensions
// filter which files count (empty = all).
func NewWatcher(roots, extensions []string, recursive bool, onChange, onRemove func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		onChange:   onChange,
		onRemove:   onRemove,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Debug("watcher started", zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions))
	}
	go w.run(ctx, watcher)
	return nil
}

// run consumes events from the captured fsnotify watcher. It must not re-read
// w.watcher: Stop nils that field concurrently, and the closed channels of the
// captured watcher already terminate the loop.
func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.matchExtension(path) && w.onChange != nil {
			w.onChange(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		// A rename surfaces only the old path; the new path arrives as a
		// separate Create event, so remove + re-queue covers it.
		if w.matchExtension(path) && w.onRemove != nil {
			w.onRemove(path)
		}
	}
}

// handleNewDirectory adds a created directory (and subdirectories when
// recursive) to the watch set, and reports its files as changed.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	watcher := w.watcher
	recursive := w.recursive
	w.mu.Unlock()
	if watcher == nil {
		return
	}
	if recursive {
		_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if err := watcher.Add(path); err != nil && w.logger != nil {
					w.logger.Debug("watcher add directory failed", zap.String("path", path), zap.Error(err))
				}
				return nil
			}
			if w.matchExtension(path) && w.onChange != nil {
				w.onChange(path)
			}
			return nil
		})
		return
	}
	if err := watcher.Add(dirPath); err != nil && w.logger != nil {
		w.logger.Debug("watcher add directory failed", zap.String("path", dirPath), zap.Error(err))
	}
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// Directories returns a copy of the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
