package staticasset

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// IsValidPath validates an asset key. It checks that the path:
//   - is not empty
//   - is relative and does not end with "/"
//   - has no empty, "." or ".." segments
//   - contains no backslash
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
//
// Spaces and other printable characters are allowed, since file names on
// disk may contain them.
func IsValidPath(p string) bool {
	if p == "" || p[0] == '/' || strings.HasSuffix(p, "/") {
		return false
	}

	if strings.ContainsRune(p, '\\') {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}

	return true
}

// NormalizePath converts a request or filesystem path into the key form used
// by Table and the registry: relative, slash separated, no leading slash.
// Paths that fail IsValidPath return ErrInvalidInput.
func NormalizePath(p string) (string, error) {
	key := strings.TrimPrefix(filepath.ToSlash(p), "/")
	if !IsValidPath(key) {
		return "", fmt.Errorf("normalize path %q: %w", p, ErrInvalidInput)
	}
	return key, nil
}
