package filesystem_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sagarc03/staticasset"
	"github.com/sagarc03/staticasset/filesystem"
	"github.com/sagarc03/staticasset/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, content, 0o644))
}

func newSource(t *testing.T, files map[string]string) (*filesystem.Source, string) {
	t.Helper()
	tempDir := t.TempDir()
	for name, content := range files {
		writeFile(t, tempDir, name, []byte(content))
	}
	root, err := os.OpenRoot(tempDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return filesystem.NewSource(root, nil), tempDir
}

func TestSource_Read_Success(t *testing.T) {
	source, _ := newSource(t, map[string]string{"test.txt": "test content"})

	data, info, err := source.Read(context.Background(), "test.txt")

	require.NoError(t, err)
	assert.Equal(t, []byte("test content"), data)
	assert.Equal(t, int64(12), info.Size())
}

func TestSource_Read_NotFound(t *testing.T) {
	source, _ := newSource(t, nil)

	_, _, err := source.Read(context.Background(), "nonexistent.txt")

	assert.ErrorIs(t, err, staticasset.ErrNotFound)
}

func TestSource_Read_Directory(t *testing.T) {
	source, _ := newSource(t, map[string]string{"dir/file.txt": "x"})

	_, _, err := source.Read(context.Background(), "dir")

	assert.ErrorIs(t, err, staticasset.ErrNotFound)
}

func TestSource_Read_ContextCanceled(t *testing.T) {
	source, _ := newSource(t, map[string]string{"test.txt": "test content"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := source.Read(ctx, "test.txt")

	assert.Equal(t, context.Canceled, err)
}

func TestSource_Read_EscapeRejected(t *testing.T) {
	source, _ := newSource(t, nil)

	_, _, err := source.Read(context.Background(), "../outside.txt")

	assert.Error(t, err)
}

func TestSource_Load(t *testing.T) {
	source, tempDir := newSource(t, map[string]string{"css/site.css": "body{}"})
	modTime := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(tempDir, "css", "site.css"), modTime, modTime))

	asset, err := source.Load(context.Background(), "css/site.css")

	require.NoError(t, err)
	assert.Equal(t, []byte("body{}"), asset.Data())
	assert.Equal(t, "text/css", asset.ContentType())
	assert.Equal(t, staticasset.ComputeETag([]byte("body{}")), asset.ETag())
	assert.True(t, asset.ModTime().Equal(modTime))
}

func TestSource_ImplementsLoader(t *testing.T) {
	source, _ := newSource(t, nil)
	var _ registry.Loader = source
}

func TestSource_Change(t *testing.T) {
	source, _ := newSource(t, map[string]string{"index.html": "<html></html>"})

	c, err := source.Change(context.Background(), "index.html", 7)
	require.NoError(t, err)
	assert.Equal(t, "index.html", c.Path)
	assert.Equal(t, []byte("<html></html>"), c.Content)
	assert.Equal(t, "text/html", c.ContentType)
	assert.Equal(t, uint64(7), c.Generation)
	assert.False(t, c.Removed)

	c, err = source.Change(context.Background(), "gone.html", 8)
	require.NoError(t, err)
	assert.Equal(t, registry.Change{Path: "gone.html", Removed: true, Generation: 8}, c)
}

func TestSource_List_Success(t *testing.T) {
	source, _ := newSource(t, map[string]string{
		"index.html":        "a",
		"css/site.css":      "b",
		"js/app/main.js":    "c",
		".hidden/secret":    "d",
		"notes.txt~":        "e",
		"img/logo.png":      "f",
		"img/.DS_Store":     "g",
		"fonts/ok file.ttf": "h",
	})

	keys, err := source.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		".hidden/secret",
		"css/site.css",
		"fonts/ok file.ttf",
		"img/.DS_Store",
		"img/logo.png",
		"index.html",
		"js/app/main.js",
		"notes.txt~",
	}, keys)

	keys, err = source.List(context.Background(), registry.NotHidden())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"css/site.css",
		"fonts/ok file.ttf",
		"img/logo.png",
		"index.html",
		"js/app/main.js",
	}, keys)
}

func TestSource_List_EmptyDirectory(t *testing.T) {
	source, _ := newSource(t, nil)

	keys, err := source.List(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSource_List_ContextCanceled(t *testing.T) {
	source, _ := newSource(t, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.List(ctx, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_List_FollowsSymlinkInsideRoot(t *testing.T) {
	source, tempDir := newSource(t, map[string]string{"real.txt": "x"})
	if err := os.Symlink("real.txt", filepath.Join(tempDir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	keys, err := source.List(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"link.txt", "real.txt"}, keys)
}

func TestSource_Changes(t *testing.T) {
	source, _ := newSource(t, map[string]string{
		"a.txt":     "alpha",
		"b/c.json":  "{}",
		".git/HEAD": "ref",
	})

	var gen uint64
	changes, err := source.Changes(context.Background(), registry.NotHidden(), func() uint64 {
		gen++
		return gen
	})

	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "a.txt", changes[0].Path)
	assert.Equal(t, []byte("alpha"), changes[0].Content)
	assert.Equal(t, "text/plain", changes[0].ContentType)
	assert.Equal(t, uint64(1), changes[0].Generation)
	assert.Equal(t, "b/c.json", changes[1].Path)
	assert.Equal(t, "application/json", changes[1].ContentType)
	assert.Equal(t, uint64(2), changes[1].Generation)
}

func TestSource_Changes_PreloadRegistry(t *testing.T) {
	source, _ := newSource(t, map[string]string{"index.html": "<p>hi</p>", "app.js": "1"})

	reg := registry.New(registry.Options{Loader: source})
	changes, err := source.Changes(context.Background(), nil, reg.NextGeneration)
	require.NoError(t, err)
	require.NoError(t, reg.Preload(context.Background(), changes))

	assert.Equal(t, []string{"app.js", "index.html"}, reg.Paths())
	asset, err := reg.Get(context.Background(), "/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(asset.Data()))
}

func TestSource_Manifest(t *testing.T) {
	large := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	source, tempDir := newSource(t, map[string]string{
		"app.js":   "console.log(1)",
		"blob":     "%PDF-1.7\n",
		"big.bin":  string(large),
		"empty.md": "",
	})
	modTime := time.Date(2024, time.March, 1, 12, 0, 0, 500, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(tempDir, "app.js"), modTime, modTime))

	files, err := source.Manifest(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, files, 4)

	byPath := map[string]staticasset.EmbeddedFile{}
	for _, f := range files {
		byPath[f.Path] = f
	}

	app := byPath["app.js"]
	assert.Equal(t, int64(14), app.Size)
	assert.Equal(t, staticasset.ComputeETag([]byte("console.log(1)")), app.ETag)
	assert.Equal(t, "application/javascript", app.ContentType)
	assert.Equal(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC), app.ModTime)

	assert.Equal(t, "application/pdf", byPath["blob"].ContentType)
	assert.Equal(t, staticasset.ComputeETag(large), byPath["big.bin"].ETag)
	assert.Equal(t, int64(len(large)), byPath["big.bin"].Size)
	assert.Equal(t, int64(0), byPath["empty.md"].Size)
	assert.Equal(t, staticasset.ComputeETag(nil), byPath["empty.md"].ETag)
}

func TestSource_Manifest_MatchesLoad(t *testing.T) {
	source, _ := newSource(t, map[string]string{"a/b/c.svg": "<svg/>"})

	files, err := source.Manifest(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, files, 1)

	asset, err := source.Load(context.Background(), "a/b/c.svg")
	require.NoError(t, err)
	assert.Equal(t, asset.ETag(), files[0].ETag)
	assert.Equal(t, asset.ContentType(), files[0].ContentType)
}

func TestSource_Dirs(t *testing.T) {
	source, _ := newSource(t, map[string]string{
		"index.html":   "a",
		"css/site.css": "b",
		"js/app/x.js":  "c",
	})
	require.NoError(t, os.Mkdir(filepath.Join(source.Dir(), "empty"), 0o755))

	dirs, err := source.Dirs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{".", "css", "empty", "js", "js/app"}, dirs)
}

func TestTableFromFS(t *testing.T) {
	modTime := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	fsys := fstest.MapFS{
		"index.html":     {Data: []byte("<h1>hi</h1>"), ModTime: modTime},
		"static/app.js":  {Data: []byte("let x")},
		"static/noext":   {Data: []byte("plain words")},
		"static/sub/dir": {Mode: os.ModeDir},
	}

	table, err := filesystem.TableFromFS(fsys, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"index.html", "static/app.js", "static/noext"}, table.Paths())

	index, ok := table.Lookup("/index.html")
	require.True(t, ok)
	assert.Equal(t, "text/html", index.ContentType())
	assert.True(t, index.ModTime().Equal(modTime))
	assert.Equal(t, staticasset.ComputeETag([]byte("<h1>hi</h1>")), index.ETag())

	noext, ok := table.Lookup("static/noext")
	require.True(t, ok)
	assert.Equal(t, "text/plain; charset=utf-8", noext.ContentType())
}

func TestTableFromFS_CustomMIMETypes(t *testing.T) {
	fsys := fstest.MapFS{"data.custom": {Data: []byte("x")}}

	table, err := filesystem.TableFromFS(fsys, staticasset.MIMETable{"custom": "application/x-custom"})
	require.NoError(t, err)

	asset, ok := table.Lookup("data.custom")
	require.True(t, ok)
	assert.Equal(t, "application/x-custom", asset.ContentType())
}
