package staticasset

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/xxh3"
)

// etagOpaqueLen is the number of base64url characters kept from the 64-bit digest.
const etagOpaqueLen = 10

// EntityTag is an HTTP entity tag in its wire form: `"opaque"` for strong
// tags and `W/"opaque"` for weak ones.
type EntityTag string

// ComputeETag returns the strong entity tag for data. The tag is the
// base64url encoding of the big-endian xxh3-64 digest, truncated to ten
// characters and quoted. It is deterministic and total, so it can be run by
// a build step and at runtime with identical results.
func ComputeETag(data []byte) EntityTag {
	return tagFromDigest(xxh3.Hash(data))
}

// HashReader streams r through the same digest as ComputeETag and returns
// the resulting tag together with the number of bytes read.
func HashReader(r io.Reader) (EntityTag, int64, error) {
	h := xxh3.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hash reader: %w", err)
	}
	return tagFromDigest(h.Sum64()), n, nil
}

func tagFromDigest(sum uint64) EntityTag {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], sum)
	encoded := base64.RawURLEncoding.EncodeToString(raw[:])
	return StrongETag(encoded[:etagOpaqueLen])
}

// StrongETag wraps opaque in quotes.
func StrongETag(opaque string) EntityTag {
	return EntityTag(`"` + opaque + `"`)
}

// WeakETag wraps opaque in quotes and marks it weak.
func WeakETag(opaque string) EntityTag {
	return EntityTag(`W/"` + opaque + `"`)
}

// ParseEntityTag parses a single entity tag in wire form.
func ParseEntityTag(s string) (EntityTag, error) {
	s = strings.TrimSpace(s)
	tag, rest, ok := scanETag(s)
	if !ok || rest != "" {
		return "", fmt.Errorf("parse entity tag %q: %w", s, ErrMalformedHeader)
	}
	return tag, nil
}

// IsWeak reports whether the tag carries the W/ marker.
func (t EntityTag) IsWeak() bool {
	return strings.HasPrefix(string(t), "W/")
}

// Opaque returns the tag value without the weakness marker and quotes.
func (t EntityTag) Opaque() string {
	s := strings.TrimPrefix(string(t), "W/")
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// StrongMatch implements the strong comparison function: both tags must be
// strong and their opaque values identical.
func (t EntityTag) StrongMatch(other EntityTag) bool {
	return !t.IsWeak() && !other.IsWeak() && t == other
}

// WeakMatch implements the weak comparison function: opaque values must be
// identical, the weakness marker is ignored.
func (t EntityTag) WeakMatch(other EntityTag) bool {
	return t.Opaque() == other.Opaque()
}

func (t EntityTag) String() string {
	return string(t)
}

// ETagList is a parsed If-Match or If-None-Match value.
type ETagList struct {
	Any  bool
	Tags []EntityTag
}

// ParseETagList parses a comma separated list of entity tags, or "*".
// Commas inside quoted tags are part of the tag. Empty list elements are
// skipped.
func ParseETagList(s string) (ETagList, error) {
	s = strings.TrimSpace(s)
	if s == "*" {
		return ETagList{Any: true}, nil
	}

	var list ETagList
	for {
		s = strings.TrimLeft(s, " \t,")
		if s == "" {
			break
		}
		tag, rest, ok := scanETag(s)
		if !ok {
			return ETagList{}, fmt.Errorf("parse entity tag list: %w", ErrMalformedHeader)
		}
		list.Tags = append(list.Tags, tag)

		rest = strings.TrimLeft(rest, " \t")
		if rest != "" && rest[0] != ',' {
			return ETagList{}, fmt.Errorf("parse entity tag list: %w", ErrMalformedHeader)
		}
		s = rest
	}

	if len(list.Tags) == 0 {
		return ETagList{}, fmt.Errorf("parse entity tag list: empty: %w", ErrMalformedHeader)
	}
	return list, nil
}

// MatchStrong reports whether the list is "*" or contains a tag strongly
// matching t.
func (l ETagList) MatchStrong(t EntityTag) bool {
	if l.Any {
		return true
	}
	for _, candidate := range l.Tags {
		if candidate.StrongMatch(t) {
			return true
		}
	}
	return false
}

// MatchWeak reports whether the list is "*" or contains a tag weakly
// matching t.
func (l ETagList) MatchWeak(t EntityTag) bool {
	if l.Any {
		return true
	}
	for _, candidate := range l.Tags {
		if candidate.WeakMatch(t) {
			return true
		}
	}
	return false
}

// scanETag reads one entity tag from the start of s and returns the remainder.
func scanETag(s string) (EntityTag, string, bool) {
	start := s
	if strings.HasPrefix(s, "W/") {
		s = s[2:]
	}
	if len(s) < 2 || s[0] != '"' {
		return "", "", false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			end := len(start) - len(s) + i + 1
			return EntityTag(start[:end]), s[i+1:], true
		case c == 0x21 || (c >= 0x23 && c != 0x7f):
			// etagc, including obs-text
		default:
			return "", "", false
		}
	}
	return "", "", false
}
