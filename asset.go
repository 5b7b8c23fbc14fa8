package staticasset

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Asset is an immutable piece of servable content together with the
// validators used for conditional requests. The byte slice is shared, never
// copied and never mutated; an update replaces the whole Asset.
type Asset struct {
	data        []byte
	tag         EntityTag
	modTime     time.Time
	contentType string
}

// NewAsset builds an Asset from data, computing its entity tag. The
// modification time is truncated to whole seconds, the precision of HTTP
// dates. An empty contentType becomes application/octet-stream.
func NewAsset(data []byte, contentType string, modTime time.Time) Asset {
	return NewAssetWithTag(data, ComputeETag(data), contentType, modTime)
}

// NewAssetWithTag builds an Asset with a precomputed entity tag, typically
// one produced at build time by the manifest command.
func NewAssetWithTag(data []byte, tag EntityTag, contentType string, modTime time.Time) Asset {
	if contentType == "" {
		contentType = DefaultContentType
	}
	if data == nil {
		data = []byte{}
	}
	return Asset{
		data:        data,
		tag:         tag,
		modTime:     truncateModTime(modTime),
		contentType: contentType,
	}
}

// EmbeddedFile describes content baked into the binary at build time.
type EmbeddedFile struct {
	Path        string    `yaml:"path" json:"path"`
	Size        int64     `yaml:"size" json:"size"`
	ETag        EntityTag `yaml:"etag" json:"etag"`
	ContentType string    `yaml:"content_type" json:"content_type"`
	ModTime     time.Time `yaml:"mod_time" json:"mod_time"`
}

// MustEmbed turns embedded bytes and their build-time description into an
// Asset. A size disagreeing with len(data) is a build pipeline bug and
// panics. An empty ETag is computed from data.
func MustEmbed(data []byte, file EmbeddedFile) Asset {
	if int64(len(data)) != file.Size {
		panic(fmt.Sprintf("staticasset: embedded %s: declared size %d, have %d bytes", file.Path, file.Size, len(data)))
	}
	tag := file.ETag
	if tag == "" {
		tag = ComputeETag(data)
	}
	return NewAssetWithTag(data, tag, file.ContentType, file.ModTime)
}

// Data returns the asset bytes. Callers must not modify the returned slice.
func (a Asset) Data() []byte {
	return a.data
}

// Len returns the byte length of the asset.
func (a Asset) Len() int64 {
	return int64(len(a.data))
}

func (a Asset) ETag() EntityTag {
	return a.tag
}

// ModTime returns the last modification time at second precision. The zero
// time means unknown.
func (a Asset) ModTime() time.Time {
	return a.modTime
}

func (a Asset) ContentType() string {
	return a.contentType
}

// IsZero reports whether a is the zero Asset.
func (a Asset) IsZero() bool {
	return a.data == nil && a.tag == ""
}

// Equal reports whether two assets are observably identical: same tag,
// length, modification time and content type.
func (a Asset) Equal(b Asset) bool {
	return a.tag == b.tag &&
		len(a.data) == len(b.data) &&
		a.modTime.Equal(b.modTime) &&
		a.contentType == b.contentType
}

func truncateModTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Second)
}

// Table is a fixed path to Asset mapping, typically built once from
// embedded files and read concurrently afterwards.
type Table map[string]Asset

// Lookup returns the asset registered for the normalized form of path.
func (t Table) Lookup(path string) (Asset, bool) {
	key, err := NormalizePath(path)
	if err != nil {
		return Asset{}, false
	}
	a, ok := t[key]
	return a, ok
}

// Get is Lookup with an error return, so a Table can back an HTTP handler.
// A miss returns ErrNotFound.
func (t Table) Get(ctx context.Context, path string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	a, ok := t.Lookup(path)
	if !ok {
		return Asset{}, fmt.Errorf("table get %s: %w", path, ErrNotFound)
	}
	return a, nil
}

// Add registers a under the normalized form of path.
func (t Table) Add(path string, a Asset) error {
	key, err := NormalizePath(path)
	if err != nil {
		return fmt.Errorf("table add: %w", err)
	}
	t[key] = a
	return nil
}

// Paths returns the registered paths in sorted order.
func (t Table) Paths() []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
