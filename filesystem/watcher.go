package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sagarc03/staticasset"
	"github.com/sagarc03/staticasset/registry"
)

// DefaultDebounce is how long the watcher waits after the last event for a
// path before reporting it. Editors often write a file in several steps.
const DefaultDebounce = 50 * time.Millisecond

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// ReadContent makes the watcher read changed files and send their
	// content. Otherwise changes carry no content and only invalidate.
	ReadContent bool
	// Generations stamps each change once its content has been read.
	// Nil leaves the generation to the registry.
	Generations func() uint64
	// Matcher filters reported paths. Nil admits everything.
	Matcher registry.Matcher
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher turns fsnotify events below a Source into registry changes.
type Watcher struct {
	source  *Source
	fsw     *fsnotify.Watcher
	opts    WatcherOptions
	logger  *slog.Logger
	changes chan registry.Change

	// Only touched by Run.
	pending map[string]struct{}
	known   map[string]struct{}
}

// NewWatcher watches every directory of source. The tree is listed once so
// that removing a directory can be reported for the files it held.
func NewWatcher(ctx context.Context, source *Source, opts WatcherOptions) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Matcher == nil {
		opts.Matcher = registry.MatchAll()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		source:  source,
		fsw:     fsw,
		opts:    opts,
		logger:  logger,
		changes: make(chan registry.Change),
		pending: make(map[string]struct{}),
		known:   make(map[string]struct{}),
	}

	if err := w.watchTree(ctx, "."); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes returns the change feed. It is closed when Run returns.
func (w *Watcher) Changes() <-chan registry.Change {
	return w.changes
}

// Close stops the underlying watcher. A running Run returns nil.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers changes until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.changes)
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("failed to close watcher", "err", err)
		}
	}()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			key, ok := w.key(event.Name)
			if !ok {
				continue
			}
			w.pending[key] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				fire = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "dir", w.source.Dir(), "err", err)

		case <-fire:
			timer, fire = nil, nil
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) key(name string) (string, bool) {
	rel, err := filepath.Rel(w.source.Dir(), name)
	if err != nil || rel == "." {
		return "", false
	}
	key := filepath.ToSlash(rel)
	if _, err := staticasset.NormalizePath(key); err != nil {
		return "", false
	}
	return key, true
}

func (w *Watcher) flush(ctx context.Context) error {
	keys := make([]string, 0, len(w.pending))
	for key := range w.pending {
		keys = append(keys, key)
	}
	clear(w.pending)
	sort.Strings(keys)

	w.logger.Debug("flushing file events", "count", len(keys))

	for _, key := range keys {
		info, err := w.source.root.Stat(key)
		switch {
		case errors.Is(err, os.ErrNotExist):
			if err := w.removeTree(ctx, key); err != nil {
				return err
			}
		case err != nil:
			w.logger.Warn("failed to stat changed path", "path", key, "err", err)
		case info.IsDir():
			if err := w.watchTree(ctx, key); err != nil {
				w.logger.Warn("failed to watch directory", "path", key, "err", err)
				continue
			}
			err := w.source.walkDir(ctx, key, func(file string, _ fs.FileInfo) error {
				return w.emit(ctx, file)
			})
			if err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := w.emit(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// watchTree adds a watch for dir and every directory below it, and records
// the files it holds.
func (w *Watcher) watchTree(ctx context.Context, dir string) error {
	if err := w.fsw.Add(filepath.Join(w.source.Dir(), filepath.FromSlash(dir))); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return w.source.walk(ctx, dir, func(key string, d fs.DirEntry) error {
		if d.IsDir() {
			if err := w.fsw.Add(filepath.Join(w.source.Dir(), filepath.FromSlash(key))); err != nil {
				return fmt.Errorf("watch %s: %w", key, err)
			}
			return nil
		}
		w.known[key] = struct{}{}
		return nil
	})
}

// removeTree reports key and every known file below it as removed.
func (w *Watcher) removeTree(ctx context.Context, key string) error {
	prefix := key + "/"
	var gone []string
	for file := range w.known {
		if file == key || strings.HasPrefix(file, prefix) {
			gone = append(gone, file)
		}
	}
	sort.Strings(gone)

	for _, file := range gone {
		delete(w.known, file)
		if !w.opts.Matcher.Match(file) {
			continue
		}
		if err := w.send(ctx, registry.Change{Path: file, Removed: true, Generation: w.generation()}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) emit(ctx context.Context, key string) error {
	w.known[key] = struct{}{}
	if !w.opts.Matcher.Match(key) {
		return nil
	}

	if !w.opts.ReadContent {
		return w.send(ctx, registry.Change{Path: key, Generation: w.generation()})
	}

	change, err := w.source.Change(ctx, key, 0)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("failed to read changed file", "path", key, "err", err)
		return nil
	}
	if change.Removed {
		delete(w.known, key)
	}
	change.Generation = w.generation()
	return w.send(ctx, change)
}

func (w *Watcher) generation() uint64 {
	if w.opts.Generations == nil {
		return 0
	}
	return w.opts.Generations()
}

func (w *Watcher) send(ctx context.Context, c registry.Change) error {
	select {
	case w.changes <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
