// Package watcher implements driven.ChangeWatcher on top of fsnotify.
//
// Directories are watched recursively, new subdirectories are picked up as
// they appear, and bursts of events collapse into one callback per quiet
// debounce window.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/custodia-labs/xtctx/internal/core/domain"
	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.ChangeWatcher = (*Watcher)(nil)

// ErrAlreadyStarted is returned when Start is called on a running watcher.
var ErrAlreadyStarted = errors.New("watcher already started")

// Watcher debounces filesystem events under a set of roots.
type Watcher struct {
	debounce time.Duration
	excludes []glob.Glob

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	roots    []string
	onChange func()
	timer    *time.Timer
	done     chan struct{}
	running  bool
	wg       sync.WaitGroup
}

// New creates a watcher. Exclude patterns are globs matched against paths
// relative to the watched root, where "**" spans directories.
func New(debounce time.Duration, excludePatterns []string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = domain.DefaultDebounce
	}

	excludes := make([]glob.Glob, 0, len(excludePatterns))
	for _, pattern := range excludePatterns {
		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("%w: exclude pattern %q: %v", domain.ErrInvalidInput, pattern, err)
		}
		excludes = append(excludes, g)
	}

	return &Watcher{debounce: debounce, excludes: excludes}, nil
}

// Start begins watching paths. Paths that do not exist are skipped.
func (w *Watcher) Start(ctx context.Context, paths []string, onChange func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w.fsw = fsw
	w.onChange = onChange
	w.roots = w.roots[:0]
	w.done = make(chan struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			logger.Debug("watcher: skipping %s: %v", path, err)
			continue
		}
		root := filepath.Clean(path)
		w.roots = append(w.roots, root)
		if !info.IsDir() {
			if err := fsw.Add(root); err != nil {
				logger.Warn("watcher: cannot watch %s: %v", root, err)
			}
			continue
		}
		w.addTree(root)
	}

	w.running = true
	w.wg.Add(1)
	go w.loop(ctx, fsw, w.done)

	logger.Debug("watcher: watching %d root(s)", len(w.roots))
	return nil
}

// Stop cancels any pending callback and closes the fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	close(w.done)
	err := w.fsw.Close()
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

// loop drains fsnotify channels until Stop or ctx cancellation.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
				w.timer = nil
			}
			w.mu.Unlock()
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.handleFsEvent(event) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

// handleFsEvent reports whether event should count as a change. Newly
// created directories are added to the watch set.
func (w *Watcher) handleFsEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.excluded(event.Name, false) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.running {
				w.addTree(event.Name)
			}
			w.mu.Unlock()
		}
	}
	return true
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	onChange := w.onChange
	w.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// addTree watches dir and every non-excluded subdirectory. Caller holds mu.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.excluded(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			logger.Warn("watcher: cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// excluded matches path, relative to its root, against the exclude globs.
func (w *Watcher) excluded(path string, isDir bool) bool {
	if len(w.excludes) == 0 {
		return false
	}
	rel := w.relative(path)
	if rel == "" {
		return false
	}
	candidates := []string{rel}
	if isDir {
		candidates = append(candidates, rel+"/")
	}
	for _, g := range w.excludes {
		for _, c := range candidates {
			if g.Match(c) {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) relative(path string) string {
	path = filepath.Clean(path)
	for _, root := range w.roots {
		if path == root {
			return ""
		}
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			rel, err := filepath.Rel(root, path)
			if err == nil {
				return filepath.ToSlash(rel)
			}
		}
	}
	return filepath.ToSlash(filepath.Base(path))
}
