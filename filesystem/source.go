// Package filesystem provides the on-disk asset source for staticasset.
// It loads files through an os.Root, which keeps every access inside the
// configured directory, walks the tree for the initial registry population
// and build manifests, and watches it for changes with fsnotify.
package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"time"

	"github.com/sagarc03/staticasset"
	"github.com/sagarc03/staticasset/registry"
)

// Source reads assets from a directory.
type Source struct {
	root      *os.Root
	mimeTypes staticasset.MIMETable
}

// NewSource creates a Source over root. A nil mimeTypes uses
// staticasset.DefaultMIMETypes.
func NewSource(root *os.Root, mimeTypes staticasset.MIMETable) *Source {
	return &Source{root: root, mimeTypes: mimeTypes}
}

// Dir returns the directory name the root was opened with.
func (s *Source) Dir() string {
	return s.root.Name()
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Read returns the content and modification time of a regular file.
// Missing files and directories return staticasset.ErrNotFound.
func (s *Source) Read(ctx context.Context, key string) ([]byte, fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("read %s: %w", key, staticasset.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", key, "err", closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("read %s: not a regular file: %w", key, staticasset.ErrNotFound)
	}

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	if _, err := io.Copy(&buf, &ctxReader{ctx: ctx, r: f}); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", key, err)
	}
	return buf.Bytes(), info, nil
}

// Load reads key and builds an Asset from it. It implements registry.Loader.
func (s *Source) Load(ctx context.Context, key string) (staticasset.Asset, error) {
	data, info, err := s.Read(ctx, key)
	if err != nil {
		return staticasset.Asset{}, err
	}
	contentType := staticasset.DetectContentType(s.mimeTypes, key, data)
	return staticasset.NewAsset(data, contentType, info.ModTime()), nil
}

// Change reads key and describes it as a registry change stamped with gen.
// A file that no longer exists yields a removal.
func (s *Source) Change(ctx context.Context, key string, gen uint64) (registry.Change, error) {
	data, info, err := s.Read(ctx, key)
	if err != nil {
		if errors.Is(err, staticasset.ErrNotFound) {
			return registry.Change{Path: key, Removed: true, Generation: gen}, nil
		}
		return registry.Change{}, err
	}
	return registry.Change{
		Path:        key,
		Content:     data,
		ContentType: staticasset.DetectContentType(s.mimeTypes, key, data),
		ModTime:     info.ModTime(),
		Generation:  gen,
	}, nil
}

// List recursively walks the root and returns the keys of all regular files
// admitted by m, sorted. A nil m admits everything.
func (s *Source) List(ctx context.Context, m registry.Matcher) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		m = registry.MatchAll()
	}

	var keys []string
	err := s.walkDir(ctx, ".", func(key string, _ fs.FileInfo) error {
		if m.Match(key) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Changes reads every file admitted by m for the initial registry
// population. Each change takes its generation from gen once the read has
// completed.
func (s *Source) Changes(ctx context.Context, m registry.Matcher, gen func() uint64) ([]registry.Change, error) {
	keys, err := s.List(ctx, m)
	if err != nil {
		return nil, err
	}

	changes := make([]registry.Change, 0, len(keys))
	for _, key := range keys {
		data, info, err := s.Read(ctx, key)
		if err != nil {
			if errors.Is(err, staticasset.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("read changes: %w", err)
		}
		changes = append(changes, registry.Change{
			Path:        key,
			Content:     data,
			ContentType: staticasset.DetectContentType(s.mimeTypes, key, data),
			ModTime:     info.ModTime(),
			Generation:  gen(),
		})
	}
	return changes, nil
}

// Manifest describes every file admitted by m without holding file
// contents in memory. Tags are computed with staticasset.HashReader, so they
// equal the tags the server computes at runtime.
func (s *Source) Manifest(ctx context.Context, m registry.Matcher) ([]staticasset.EmbeddedFile, error) {
	keys, err := s.List(ctx, m)
	if err != nil {
		return nil, err
	}

	files := make([]staticasset.EmbeddedFile, 0, len(keys))
	for _, key := range keys {
		file, err := s.describe(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		files = append(files, file)
	}
	return files, nil
}

func (s *Source) describe(ctx context.Context, key string) (staticasset.EmbeddedFile, error) {
	f, err := s.root.Open(key)
	if err != nil {
		return staticasset.EmbeddedFile{}, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", key, "err", closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return staticasset.EmbeddedFile{}, err
	}

	// Sniff from the first 512 bytes when the extension is unknown.
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return staticasset.EmbeddedFile{}, err
	}
	head = head[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return staticasset.EmbeddedFile{}, err
	}

	tag, size, err := staticasset.HashReader(&ctxReader{ctx: ctx, r: f})
	if err != nil {
		return staticasset.EmbeddedFile{}, err
	}

	return staticasset.EmbeddedFile{
		Path:        key,
		Size:        size,
		ETag:        tag,
		ContentType: staticasset.DetectContentType(s.mimeTypes, key, head),
		ModTime:     info.ModTime().UTC().Truncate(time.Second),
	}, nil
}

// Dirs returns every directory below the root, including ".", sorted.
func (s *Source) Dirs(ctx context.Context) ([]string, error) {
	dirs := []string{"."}
	err := s.walk(ctx, ".", func(key string, d fs.DirEntry) error {
		if d.IsDir() {
			dirs = append(dirs, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list dirs: %w", err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (s *Source) walkDir(ctx context.Context, dir string, fn func(key string, info fs.FileInfo) error) error {
	return s.walk(ctx, dir, func(key string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		// Stat through the root follows symlinks that stay inside it.
		info, err := s.root.Stat(key)
		if err != nil {
			slog.Warn("skipping unreadable entry", "path", key, "err", err)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return fn(key, info)
	})
}

func (s *Source) walk(ctx context.Context, dir string, fn func(key string, d fs.DirEntry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := path.Join(dir, entry.Name())
		if _, err := staticasset.NormalizePath(key); err != nil {
			slog.Warn("skipping invalid path", "path", key)
			continue
		}

		if err := fn(key, entry); err != nil {
			return err
		}
		if entry.IsDir() {
			if err := s.walk(ctx, key, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

// TableFromFS loads every regular file of fsys into a Table. It is meant
// for embed.FS trees, which never change after build.
func TableFromFS(fsys fs.FS, mimeTypes staticasset.MIMETable) (staticasset.Table, error) {
	table := staticasset.Table{}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		contentType := staticasset.DetectContentType(mimeTypes, p, data)
		return table.Add(p, staticasset.NewAsset(data, contentType, info.ModTime()))
	})
	if err != nil {
		return nil, fmt.Errorf("table from fs: %w", err)
	}
	return table, nil
}
