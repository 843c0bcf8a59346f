// # internal/core/watcher/watcher.go
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"cssnav/internal/engine/tracker"
	"cssnav/internal/shared/observability"
	"cssnav/internal/shared/util"
)

// Watcher turns file system notifications below a set of roots into
// debounced batches of tracker.FileChange values.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	debounce    time.Duration
	excludeDirs []glob.Glob
	extensions  map[string]bool
	onChange    func([]tracker.FileChange)
	callbackMu  sync.Mutex

	roots   map[string]bool
	rootsMu sync.RWMutex

	pending   map[string]tracker.ChangeType
	pendingMu sync.Mutex
	timer     *time.Timer
	closed    bool
	started   sync.Once
	done      chan struct{}
}

// NewWatcher creates a watcher. excludeDirs are matched against folder base
// names; extensions limits file events to the listed extensions (all files
// when empty). Deletions always pass since a deleted folder cannot be told
// apart from a file.
func NewWatcher(debounce time.Duration, excludeDirs, extensions []string, onChange func([]tracker.FileChange)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiled := make([]glob.Glob, 0, len(excludeDirs))
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			exts[ext] = true
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:   fsw,
		debounce:    debounce,
		excludeDirs: compiled,
		extensions:  exts,
		onChange:    onChange,
		roots:       make(map[string]bool),
		pending:     make(map[string]tracker.ChangeType),
		done:        make(chan struct{}),
	}, nil
}

// Watch adds every folder below paths and starts the event loop.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		w.rootsMu.Lock()
		w.roots[filepath.Clean(path)] = true
		w.rootsMu.Unlock()
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	w.started.Do(func() { go w.run() })
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if !w.shouldExcludeDir(event.Name) {
			w.scheduleChange(event.Name, tracker.Deleted)
		}

	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if w.shouldExcludeDir(event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			w.scheduleChange(event.Name, tracker.Created)
			return
		}
		if !w.shouldExcludeFile(event.Name) {
			w.scheduleChange(event.Name, tracker.Created)
		}

	case event.Op&fsnotify.Write != 0:
		if !w.shouldExcludeFile(event.Name) {
			w.scheduleChange(event.Name, tracker.Changed)
		}
	}
}

func (w *Watcher) scheduleChange(path string, change tracker.ChangeType) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}

	w.pending[path] = merge(w.pending[path], change, w.hasPending(path))

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) hasPending(path string) bool {
	_, ok := w.pending[path]
	return ok
}

// merge folds a new event into the one already queued for the same path.
func merge(prev, next tracker.ChangeType, queued bool) tracker.ChangeType {
	if !queued {
		return next
	}
	switch {
	case prev == tracker.Deleted && next == tracker.Created:
		// Replaced within one window.
		return tracker.Changed
	case prev == tracker.Created && next == tracker.Changed:
		return tracker.Created
	}
	return next
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	if w.closed {
		w.pendingMu.Unlock()
		return
	}
	changes := make([]tracker.FileChange, 0, len(w.pending))
	for path, change := range w.pending {
		changes = append(changes, tracker.FileChange{URI: util.PathToURI(path), Type: change})
	}
	w.pending = make(map[string]tracker.ChangeType)
	w.pendingMu.Unlock()

	if len(changes) == 0 {
		return
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].URI < changes[j].URI })

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(changes)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) isRoot(dir string) bool {
	w.rootsMu.RLock()
	defer w.rootsMu.RUnlock()
	return w.roots[dir]
}

// shouldExcludeFile checks the folders between path and its watch root.
// The root and anything above it never exclude.
func (w *Watcher) shouldExcludeFile(path string) bool {
	dir := filepath.Dir(path)
	for dir != "" && dir != "." && dir != filepath.Dir(dir) && !w.isRoot(dir) {
		if w.shouldExcludeDir(dir) {
			return true
		}
		dir = filepath.Dir(dir)
	}
	if len(w.extensions) == 0 {
		return false
	}
	return !w.extensions[util.URIExtension(path)]
}

// Close stops the event loop and drops pending changes.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()

	err := w.fsWatcher.Close()
	// Without a running loop there is nothing to wait for.
	w.started.Do(func() { close(w.done) })
	<-w.done
	return err
}
