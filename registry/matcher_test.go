package registry_test

import (
	"testing"

	"github.com/sagarc03/staticasset/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "index.html", want: true},
		{path: "css/site.css", want: true},
		{path: "a.b/c", want: true},
		{path: ".env", want: false},
		{path: ".git/config", want: false},
		{path: "assets/.DS_Store", want: false},
		{path: "notes.md~", want: false},
	}

	m := registry.NotHidden()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestMatchRegexp(t *testing.T) {
	m, err := registry.MatchRegexp(`\.(css|js)$`)
	require.NoError(t, err)

	assert.True(t, m.Match("site.css"))
	assert.True(t, m.Match("js/app.js"))
	assert.False(t, m.Match("index.html"))
	assert.False(t, m.Match("app.json"))

	_, err = registry.MatchRegexp(`(`)
	assert.Error(t, err)
	assert.Panics(t, func() { registry.MustMatchRegexp(`(`) })
}

func TestMatchAllOf(t *testing.T) {
	m := registry.MatchAllOf(registry.NotHidden(), registry.MustMatchRegexp(`^static/`))

	assert.True(t, m.Match("static/app.js"))
	assert.False(t, m.Match("static/.cache"))
	assert.False(t, m.Match("other/app.js"))

	assert.True(t, registry.MatchAllOf().Match("anything"))
	assert.True(t, registry.MatchAll().Match(".hidden"))
}

func TestMatcherFunc(t *testing.T) {
	m := registry.MatcherFunc(func(p string) bool { return p == "only" })
	assert.True(t, m.Match("only"))
	assert.False(t, m.Match("other"))
}
