package staticasset_test

import (
	"testing"

	"github.com/sagarc03/staticasset"
	"github.com/stretchr/testify/assert"
)

const bustTag = staticasset.EntityTag(`"q25fZAd-fY"`)

func TestCacheBuster_URL(t *testing.T) {
	tests := []struct {
		name   string
		buster staticasset.CacheBuster
		path   string
		want   string
	}{
		{name: "none", buster: staticasset.CacheBuster{Mode: staticasset.BustNone}, path: "/app.js", want: "/app.js"},
		{name: "query default key", buster: staticasset.CacheBuster{Mode: staticasset.BustQuery}, path: "/app.js", want: "/app.js?v=q25fZAd-fY"},
		{name: "query custom key", buster: staticasset.CacheBuster{Mode: staticasset.BustQuery, QueryKey: "v_et"}, path: "/static/app.js", want: "/static/app.js?v_et=q25fZAd-fY"},
		{name: "suffix default separator", buster: staticasset.CacheBuster{Mode: staticasset.BustSuffix}, path: "/css/site.css", want: "/css/site.q25fZAd-fY.css"},
		{name: "suffix custom separator", buster: staticasset.CacheBuster{Mode: staticasset.BustSuffix, Separator: "-"}, path: "/site.css", want: "/site-q25fZAd-fY.css"},
		{name: "suffix without extension", buster: staticasset.CacheBuster{Mode: staticasset.BustSuffix}, path: "/LICENSE", want: "/LICENSE.q25fZAd-fY"},
		{name: "suffix dotted directory", buster: staticasset.CacheBuster{Mode: staticasset.BustSuffix}, path: "/v1.2/README", want: "/v1.2/README.q25fZAd-fY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.buster.URL(tt.path, bustTag))
		})
	}
}

func TestCacheBuster_SplitSuffix(t *testing.T) {
	tests := []struct {
		name      string
		separator string
		path      string
		base      string
		opaque    string
		ok        bool
	}{
		{name: "with extension", path: "/css/site.q25fZAd-fY.css", base: "/css/site.css", opaque: "q25fZAd-fY", ok: true},
		{name: "without extension", path: "/LICENSE.q25fZAd-fY", base: "/LICENSE", opaque: "q25fZAd-fY", ok: true},
		{name: "dash separator with dash in tag", separator: "-", path: "/site-q25fZAd-fY.css", base: "/site.css", opaque: "q25fZAd-fY", ok: true},
		{name: "plain path", path: "/css/site.css", ok: false},
		{name: "tag too short", path: "/site.abc.css", ok: false},
		{name: "tag with invalid characters", path: "/site.q25fZAd+fY.css", ok: false},
		{name: "no base name", path: "/.q25fZAd-fY.css", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buster := staticasset.CacheBuster{Mode: staticasset.BustSuffix, Separator: tt.separator}
			base, opaque, ok := buster.SplitSuffix(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.opaque, opaque)
		})
	}
}

func TestCacheBuster_URLRoundTrip(t *testing.T) {
	buster := staticasset.CacheBuster{Mode: staticasset.BustSuffix}
	for _, p := range []string{"/a.js", "/dir/b.min.css", "/LICENSE", "/x/y/z.tar.gz"} {
		base, opaque, ok := buster.SplitSuffix(buster.URL(p, bustTag))
		assert.True(t, ok, p)
		assert.Equal(t, p, base)
		assert.Equal(t, bustTag.Opaque(), opaque)
	}
}

func TestCacheBuster_CheckQuery(t *testing.T) {
	buster := staticasset.CacheBuster{Mode: staticasset.BustQuery}

	t.Run("current tag", func(t *testing.T) {
		location, current := buster.Check("/app.js", "v=q25fZAd-fY", "/app.js", bustTag)
		assert.True(t, current)
		assert.Empty(t, location)
	})

	t.Run("missing tag", func(t *testing.T) {
		location, current := buster.Check("/app.js", "", "/app.js", bustTag)
		assert.False(t, current)
		assert.Equal(t, "/app.js?v=q25fZAd-fY", location)
	})

	t.Run("stale tag replaced and other params kept", func(t *testing.T) {
		location, current := buster.Check("/app.js", "a=1&v=old&b=2", "/app.js", bustTag)
		assert.False(t, current)
		assert.Equal(t, "/app.js?v=q25fZAd-fY&a=1&b=2", location)
	})

	t.Run("similar key kept", func(t *testing.T) {
		location, _ := buster.Check("/app.js", "vv=1", "/app.js", bustTag)
		assert.Equal(t, "/app.js?v=q25fZAd-fY&vv=1", location)
	})
}

func TestCacheBuster_CheckSuffix(t *testing.T) {
	buster := staticasset.CacheBuster{Mode: staticasset.BustSuffix}

	t.Run("current tag", func(t *testing.T) {
		location, current := buster.Check("/app.q25fZAd-fY.js", "", "/app.js", bustTag)
		assert.True(t, current)
		assert.Empty(t, location)
	})

	t.Run("plain path", func(t *testing.T) {
		location, current := buster.Check("/app.js", "", "/app.js", bustTag)
		assert.False(t, current)
		assert.Equal(t, "/app.q25fZAd-fY.js", location)
	})

	t.Run("stale tag keeps query", func(t *testing.T) {
		location, current := buster.Check("/app.AAAAAAAAAA.js", "x=1", "/app.js", bustTag)
		assert.False(t, current)
		assert.Equal(t, "/app.q25fZAd-fY.js?x=1", location)
	})

	t.Run("file name that looks tagged", func(t *testing.T) {
		location, current := buster.Check("/chunk.AAAAAAAAAA.js", "", "/chunk.AAAAAAAAAA.js", bustTag)
		assert.False(t, current)
		assert.Equal(t, "/chunk.AAAAAAAAAA.q25fZAd-fY.js", location)
	})
}

func TestCacheBuster_Disabled(t *testing.T) {
	buster := staticasset.CacheBuster{Mode: staticasset.BustNone}
	assert.False(t, buster.Enabled())

	location, current := buster.Check("/app.js", "", "/app.js", bustTag)
	assert.False(t, current)
	assert.Empty(t, location)
}
