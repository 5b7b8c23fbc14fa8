package staticasset_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sagarc03/staticasset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeETag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  staticasset.EntityTag
	}{
		{name: "foo", input: "foo", want: `"q25fZAd-fY"`},
		{name: "single byte", input: "a", want: `"5sYyth6WTh"`},
		{name: "three bytes", input: "abc", want: `"eK9flIkvOV"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, staticasset.ComputeETag([]byte(tt.input)))
		})
	}
}

func TestComputeETag_Shape(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("hello world"),
		bytes.Repeat([]byte("0123456789"), 1000),
	}

	for _, in := range inputs {
		tag := staticasset.ComputeETag(in)
		s := tag.String()

		assert.Len(t, s, 12)
		assert.True(t, strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`))
		assert.False(t, tag.IsWeak())
		assert.NotContains(t, tag.Opaque(), "=")
		assert.Equal(t, tag, staticasset.ComputeETag(in), "deterministic")
	}
}

func TestComputeETag_DistinguishesContent(t *testing.T) {
	assert.NotEqual(t,
		staticasset.ComputeETag([]byte("body { color: red }")),
		staticasset.ComputeETag([]byte("body { color: blue }")),
	)
}

func TestHashReader(t *testing.T) {
	sizes := []int{0, 1, 3, 16, 128, 240, 241, 4096, 100_000}

	for _, size := range sizes {
		data := bytes.Repeat([]byte{'x'}, size)
		for i := range data {
			data[i] = byte(i * 31)
		}

		tag, n, err := staticasset.HashReader(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, int64(size), n)
		assert.Equal(t, staticasset.ComputeETag(data), tag, "size %d", size)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestHashReader_Error(t *testing.T) {
	_, _, err := staticasset.HashReader(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash reader")
}

func TestParseEntityTag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    staticasset.EntityTag
		wantErr bool
	}{
		{name: "strong", input: `"abc"`, want: `"abc"`},
		{name: "weak", input: `W/"abc"`, want: `W/"abc"`},
		{name: "surrounding whitespace", input: `  "abc" `, want: `"abc"`},
		{name: "empty opaque", input: `""`, want: `""`},
		{name: "unquoted", input: `abc`, wantErr: true},
		{name: "missing closing quote", input: `"abc`, wantErr: true},
		{name: "trailing garbage", input: `"abc"x`, wantErr: true},
		{name: "lowercase weak marker", input: `w/"abc"`, wantErr: true},
		{name: "space inside", input: `"a b"`, wantErr: true},
		{name: "empty", input: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := staticasset.ParseEntityTag(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, staticasset.ErrMalformedHeader)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntityTag_Comparison(t *testing.T) {
	tests := []struct {
		name   string
		a, b   staticasset.EntityTag
		strong bool
		weak   bool
	}{
		{name: "W/1 vs W/1", a: `W/"1"`, b: `W/"1"`, strong: false, weak: true},
		{name: "W/1 vs W/2", a: `W/"1"`, b: `W/"2"`, strong: false, weak: false},
		{name: "W/1 vs 1", a: `W/"1"`, b: `"1"`, strong: false, weak: true},
		{name: "1 vs 1", a: `"1"`, b: `"1"`, strong: true, weak: true},
		{name: "1 vs 2", a: `"1"`, b: `"2"`, strong: false, weak: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.strong, tt.a.StrongMatch(tt.b))
			assert.Equal(t, tt.strong, tt.b.StrongMatch(tt.a))
			assert.Equal(t, tt.weak, tt.a.WeakMatch(tt.b))
			assert.Equal(t, tt.weak, tt.b.WeakMatch(tt.a))
		})
	}
}

func TestEntityTag_Constructors(t *testing.T) {
	assert.Equal(t, staticasset.EntityTag(`"abc"`), staticasset.StrongETag("abc"))
	assert.Equal(t, staticasset.EntityTag(`W/"abc"`), staticasset.WeakETag("abc"))
	assert.Equal(t, "abc", staticasset.WeakETag("abc").Opaque())
	assert.True(t, staticasset.WeakETag("abc").IsWeak())
}

func TestParseETagList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    staticasset.ETagList
		wantErr bool
	}{
		{name: "wildcard", input: "*", want: staticasset.ETagList{Any: true}},
		{name: "wildcard with spaces", input: " * ", want: staticasset.ETagList{Any: true}},
		{name: "single", input: `"a"`, want: staticasset.ETagList{Tags: []staticasset.EntityTag{`"a"`}}},
		{
			name:  "mixed list",
			input: `"a", W/"b" ,"c"`,
			want:  staticasset.ETagList{Tags: []staticasset.EntityTag{`"a"`, `W/"b"`, `"c"`}},
		},
		{
			name:  "comma inside tag",
			input: `"a,b", "c"`,
			want:  staticasset.ETagList{Tags: []staticasset.EntityTag{`"a,b"`, `"c"`}},
		},
		{
			name:  "empty elements skipped",
			input: `,"a",,"b",`,
			want:  staticasset.ETagList{Tags: []staticasset.EntityTag{`"a"`, `"b"`}},
		},
		{name: "only commas", input: ` , ,`, wantErr: true},
		{name: "unquoted element", input: `"a", b`, wantErr: true},
		{name: "missing separator", input: `"a" "b"`, wantErr: true},
		{name: "wildcard inside list", input: `"a", *`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := staticasset.ParseETagList(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, staticasset.ErrMalformedHeader)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestETagList_Match(t *testing.T) {
	current := staticasset.EntityTag(`"v2"`)

	list, err := staticasset.ParseETagList(`"v1", W/"v2"`)
	require.NoError(t, err)
	assert.False(t, list.MatchStrong(current))
	assert.True(t, list.MatchWeak(current))

	list, err = staticasset.ParseETagList(`"v1", "v2"`)
	require.NoError(t, err)
	assert.True(t, list.MatchStrong(current))

	wildcard := staticasset.ETagList{Any: true}
	assert.True(t, wildcard.MatchStrong(current))
	assert.True(t, wildcard.MatchWeak(current))
}
