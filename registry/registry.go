package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sagarc03/staticasset"
)

// Warmup selects how eagerly the registry holds file content.
type Warmup string

const (
	// WarmupHot preloads every file and applies content from change events
	// immediately.
	WarmupHot Warmup = "hot"
	// WarmupWarm preloads every file; change events only invalidate and the
	// next Get reloads through the Loader.
	WarmupWarm Warmup = "warm"
	// WarmupCold preloads nothing; the first Get for a path loads it.
	WarmupCold Warmup = "cold"
)

func (w Warmup) IsValid() bool {
	switch w {
	case WarmupHot, WarmupWarm, WarmupCold:
		return true
	default:
		return false
	}
}

func ParseWarmup(s string) (Warmup, error) {
	w := Warmup(s)
	if !w.IsValid() {
		return "", fmt.Errorf("invalid warmup: %s (valid values: hot, warm, cold)", s)
	}
	return w, nil
}

// Loader reads the current content of a path on demand. It returns an error
// wrapping staticasset.ErrNotFound when the path no longer exists.
type Loader interface {
	Load(ctx context.Context, path string) (staticasset.Asset, error)
}

// Change is one event of the watch feed.
type Change struct {
	Path string
	// Content is the new file content. Nil with Removed unset means the
	// content is unknown and the entry is only invalidated.
	Content     []byte
	ContentType string
	ModTime     time.Time
	Removed     bool
	// Generation orders changes for the same path. Zero takes the next
	// value of the registry clock.
	Generation uint64
}

// Outcome reports what Apply did with a change.
type Outcome int

const (
	// OutcomeApplied means the entry now holds the change's content.
	OutcomeApplied Outcome = iota
	// OutcomeUnchanged means the visible asset was already identical.
	OutcomeUnchanged
	// OutcomeStale means a newer generation was already stored; the change was discarded.
	OutcomeStale
	// OutcomeFiltered means the matcher rejected the path or it was invalid.
	OutcomeFiltered
	// OutcomeRemoved means the entry was replaced by a tombstone.
	OutcomeRemoved
	// OutcomeInvalidated means the entry will be reloaded on the next Get.
	OutcomeInvalidated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeStale:
		return "stale"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeRemoved:
		return "removed"
	case OutcomeInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Err returns staticasset.ErrStaleUpdate for OutcomeStale and nil otherwise.
func (o Outcome) Err() error {
	if o == OutcomeStale {
		return staticasset.ErrStaleUpdate
	}
	return nil
}

// Entry is the state of one path. Entries are immutable; every update
// stores a new Entry.
type Entry struct {
	Path       string
	Asset      staticasset.Asset
	Generation uint64
	// Removed marks a tombstone. It keeps its generation so that older
	// changes arriving late are still discarded.
	Removed bool
	// Dirty marks an entry whose content must be reloaded before serving.
	// Asset holds the previous snapshot, or the zero Asset.
	Dirty bool
}

func (e *Entry) live() bool {
	return e != nil && !e.Removed && !e.Asset.IsZero()
}

// Options configures a Registry.
type Options struct {
	// Matcher admits paths. Nil admits everything.
	Matcher Matcher
	// Loader reloads invalidated entries and, in cold mode, loads misses.
	Loader Loader
	// Warmup defaults to WarmupHot.
	Warmup Warmup
	// MIMETypes resolves content types for changes that carry none. Nil
	// uses staticasset.DefaultMIMETypes.
	MIMETypes staticasset.MIMETable
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type slot struct {
	mu    sync.Mutex
	entry atomic.Pointer[Entry]
	// dead marks a slot removed from the map by Compact. Guarded by mu.
	dead bool
}

// Registry is a concurrently readable path to Asset mapping. Reads never
// take a lock; writers for the same path are serialized by a per-path
// mutex and writers for different paths proceed in parallel.
type Registry struct {
	slots     sync.Map // string -> *slot
	clock     atomic.Uint64
	matcher   Matcher
	loader    Loader
	warmup    Warmup
	mimeTypes staticasset.MIMETable
	logger    *slog.Logger
}

func New(opts Options) *Registry {
	r := &Registry{
		matcher:   opts.Matcher,
		loader:    opts.Loader,
		warmup:    opts.Warmup,
		mimeTypes: opts.MIMETypes,
		logger:    opts.Logger,
	}
	if r.matcher == nil {
		r.matcher = MatchAll()
	}
	if r.warmup == "" {
		r.warmup = WarmupHot
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

func (r *Registry) Warmup() Warmup {
	return r.warmup
}

// NextGeneration advances the registry clock. Watchers stamp changes with
// it once the file read completes, so later reads carry higher generations.
func (r *Registry) NextGeneration() uint64 {
	return r.clock.Add(1)
}

// Generation returns the latest generation handed out or observed.
func (r *Registry) Generation() uint64 {
	return r.clock.Load()
}

func (r *Registry) observe(gen uint64) {
	for {
		cur := r.clock.Load()
		if gen <= cur || r.clock.CompareAndSwap(cur, gen) {
			return
		}
	}
}

func (r *Registry) slotFor(key string) *slot {
	if s, ok := r.slots.Load(key); ok {
		return s.(*slot)
	}
	s, _ := r.slots.LoadOrStore(key, &slot{})
	return s.(*slot)
}

// lockSlot returns the locked live slot for key. A slot compacted between
// the map load and the lock is skipped.
func (r *Registry) lockSlot(key string) *slot {
	for {
		s := r.slotFor(key)
		s.mu.Lock()
		if !s.dead {
			return s
		}
		s.mu.Unlock()
	}
}

func (r *Registry) load(key string) *Entry {
	s, ok := r.slots.Load(key)
	if !ok {
		return nil
	}
	return s.(*slot).entry.Load()
}

// Lookup returns the current snapshot for path without blocking. Removed
// paths and paths never loaded report false. An invalidated entry still
// returns its previous snapshot.
func (r *Registry) Lookup(path string) (staticasset.Asset, bool) {
	key, err := staticasset.NormalizePath(path)
	if err != nil {
		return staticasset.Asset{}, false
	}
	e := r.load(key)
	if !e.live() {
		return staticasset.Asset{}, false
	}
	return e.Asset, true
}

// Entry returns the stored state of path, including tombstones.
func (r *Registry) Entry(path string) (Entry, bool) {
	key, err := staticasset.NormalizePath(path)
	if err != nil {
		return Entry{}, false
	}
	e := r.load(key)
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// Apply admits c through the matcher and atomically replaces, invalidates
// or removes the entry for its path. Applying the same change twice leaves
// the visible asset unchanged.
func (r *Registry) Apply(c Change) Outcome {
	key, err := staticasset.NormalizePath(c.Path)
	if err != nil || !r.matcher.Match(key) {
		return OutcomeFiltered
	}

	s := r.lockSlot(key)
	defer s.mu.Unlock()

	cur := s.entry.Load()
	gen := c.Generation
	if gen == 0 {
		gen = r.NextGeneration()
	} else {
		if cur != nil && gen <= cur.Generation {
			return OutcomeStale
		}
		r.observe(gen)
	}

	switch {
	case c.Removed:
		s.entry.Store(&Entry{Path: key, Generation: gen, Removed: true})
		if cur == nil || cur.Removed {
			return OutcomeUnchanged
		}
		return OutcomeRemoved

	case c.Content == nil:
		next := &Entry{Path: key, Generation: gen, Dirty: true}
		if cur.live() {
			next.Asset = cur.Asset
		}
		s.entry.Store(next)
		return OutcomeInvalidated
	}

	contentType := c.ContentType
	if contentType == "" {
		contentType = staticasset.DetectContentType(r.mimeTypes, key, c.Content)
	}
	asset := staticasset.NewAsset(c.Content, contentType, c.ModTime)

	if cur.live() && !cur.Dirty && cur.Asset.Equal(asset) {
		s.entry.Store(&Entry{Path: key, Asset: cur.Asset, Generation: gen})
		return OutcomeUnchanged
	}
	s.entry.Store(&Entry{Path: key, Asset: asset, Generation: gen})
	return OutcomeApplied
}

// Get returns the asset for path, reloading invalidated entries and, in
// cold mode, loading paths not seen before. A miss returns an error
// wrapping staticasset.ErrNotFound.
func (r *Registry) Get(ctx context.Context, path string) (staticasset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return staticasset.Asset{}, err
	}

	key, err := staticasset.NormalizePath(path)
	if err != nil {
		return staticasset.Asset{}, fmt.Errorf("registry get: %w", err)
	}
	if !r.matcher.Match(key) {
		return staticasset.Asset{}, fmt.Errorf("registry get %s: %w", key, staticasset.ErrNotFound)
	}

	seen := r.load(key)
	switch {
	case seen != nil && !seen.Dirty:
		if seen.Removed {
			return staticasset.Asset{}, fmt.Errorf("registry get %s: %w", key, staticasset.ErrNotFound)
		}
		return seen.Asset, nil

	case r.loader == nil, seen == nil && r.warmup != WarmupCold:
		if seen.live() {
			return seen.Asset, nil
		}
		return staticasset.Asset{}, fmt.Errorf("registry get %s: %w", key, staticasset.ErrNotFound)
	}

	return r.reload(ctx, key, seen)
}

// reload reads key through the Loader outside the slot lock. The
// generation is taken before the read, so a change applied while the read
// is in flight is newer than the loaded content and is never overwritten.
func (r *Registry) reload(ctx context.Context, key string, seen *Entry) (staticasset.Asset, error) {
	gen := r.NextGeneration()
	asset, err := r.loader.Load(ctx, key)
	if err != nil {
		if errors.Is(err, staticasset.ErrNotFound) {
			if seen != nil {
				r.storeIfUnchanged(key, seen, &Entry{Path: key, Generation: gen, Removed: true})
			}
			return staticasset.Asset{}, fmt.Errorf("registry get %s: %w", key, staticasset.ErrNotFound)
		}
		if seen.live() {
			r.logger.Warn("reload failed, serving previous content", "path", key, "err", err)
			return seen.Asset, nil
		}
		return staticasset.Asset{}, fmt.Errorf("registry get %s: %w", key, err)
	}

	s := r.lockSlot(key)
	defer s.mu.Unlock()

	cur := s.entry.Load()
	if cur != nil && cur.Generation > gen {
		switch {
		case cur.Removed:
			return staticasset.Asset{}, fmt.Errorf("registry get %s: %w", key, staticasset.ErrNotFound)
		case !cur.Dirty:
			return cur.Asset, nil
		}
		// Invalidated during the read: keep the entry dirty so the next
		// Get reads again, but let Lookup see the fresher snapshot.
		s.entry.Store(&Entry{Path: key, Asset: asset, Generation: cur.Generation, Dirty: true})
		return asset, nil
	}
	s.entry.Store(&Entry{Path: key, Asset: asset, Generation: gen})
	r.logger.Debug("asset loaded", "path", key, "etag", asset.ETag(), "size", asset.Len())
	return asset, nil
}

func (r *Registry) storeIfUnchanged(key string, seen, next *Entry) {
	s := r.lockSlot(key)
	defer s.mu.Unlock()
	if s.entry.Load() == seen {
		s.entry.Store(next)
	}
}

// Compact drops tombstones with a generation below before and returns how
// many were dropped. A change for a compacted path is admitted whatever its
// generation, so before must not exceed the generation of any change still
// in flight; a generation read from Generation some time ago is safe.
func (r *Registry) Compact(before uint64) int {
	n := 0
	r.slots.Range(func(k, v any) bool {
		s := v.(*slot)
		s.mu.Lock()
		defer s.mu.Unlock()
		if e := s.entry.Load(); e != nil && e.Removed && e.Generation < before {
			s.dead = true
			r.slots.CompareAndDelete(k, s)
			n++
		}
		return true
	})
	return n
}

// Preload applies an initial set of changes, typically one per file found
// when the registry is created.
func (r *Registry) Preload(ctx context.Context, changes []Change) error {
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Apply(c)
	}
	return nil
}

// Run applies changes from the watch feed until ctx is done or changes is
// closed. A closed channel returns nil.
func (r *Registry) Run(ctx context.Context, changes <-chan Change) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			outcome := r.Apply(c)
			if err := outcome.Err(); err != nil {
				r.logger.Debug("change discarded", "path", c.Path, "generation", c.Generation, "err", err)
				continue
			}
			r.logger.Debug("change applied", "path", c.Path, "generation", c.Generation, "removed", c.Removed, "outcome", outcome.String())
		}
	}
}

// Paths returns the paths with content, sorted.
func (r *Registry) Paths() []string {
	var paths []string
	r.slots.Range(func(k, v any) bool {
		if v.(*slot).entry.Load().live() {
			paths = append(paths, k.(string))
		}
		return true
	})
	sort.Strings(paths)
	return paths
}

// Len returns the number of paths with content.
func (r *Registry) Len() int {
	n := 0
	r.slots.Range(func(_, v any) bool {
		if v.(*slot).entry.Load().live() {
			n++
		}
		return true
	})
	return n
}
