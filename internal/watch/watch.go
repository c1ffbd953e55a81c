// Package watch reports settled changes to .proto files under a directory.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultPattern selects the files whose changes trigger a callback.
const DefaultPattern = "**/*.proto"

// DefaultDebounce is how long events must stop before the callback fires.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Root is the directory watched recursively.
	Root string
	// Pattern is a doublestar glob matched against paths relative to Root.
	Pattern  string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher batches file events and calls a function once they settle.
type Watcher struct {
	opts    Options
	watcher *fsnotify.Watcher
	log     *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	fire    chan struct{}
}

// New creates a watcher on every directory under opts.Root.
func New(opts Options) (*Watcher, error) {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(opts.Pattern) {
		return nil, fmt.Errorf("invalid watch pattern '%s'", opts.Pattern)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		opts:    opts,
		watcher: fw,
		log:     opts.Logger.With("component", "watch"),
		pending: make(map[string]struct{}),
		fire:    make(chan struct{}, 1),
	}
	if err := w.addTree(opts.Root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	visited := make(map[string]bool)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		// Symlinked directories can form cycles.
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil || visited[resolved] {
			return filepath.SkipDir
		}
		visited[resolved] = true

		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Run calls onChange with the sorted set of changed paths each
// time events settle. It returns when ctx is done or the watcher fails.
// onChange runs on the Run goroutine, so events arriving meanwhile are
// batched into the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	defer func() { _ = w.watcher.Close() }()
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("File watcher error", "error", err)

		case <-w.fire:
			if paths := w.drain(); len(paths) > 0 {
				onChange(ctx, paths)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	w.log.Debug("Event", "op", event.Op.String(), "path", event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("Failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			// Files written before the directory was watched produce no events.
			w.enqueueTree(event.Name)
			return
		}
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.Matches(event.Name) {
		w.enqueue(event.Name)
	}
}

// enqueueTree queues every matching file under dir.
func (w *Watcher) enqueueTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() && w.Matches(path) {
			w.enqueue(path)
		}
		return nil
	})
}

// enqueue adds path to the pending batch and restarts the debounce timer.
func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.opts.Debounce, w.signal)
	} else {
		w.timer.Reset(w.opts.Debounce)
	}
}

func (w *Watcher) signal() {
	select {
	case w.fire <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(paths)
	return paths
}

// Matches reports whether path, relative to the watched root, matches the
// configured pattern.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.opts.Root, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.opts.Pattern, filepath.ToSlash(rel))
	return err == nil && ok
}
