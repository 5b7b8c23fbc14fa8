package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher decides which logical paths are admitted into the registry.
// Paths are normalized keys without a leading slash.
type Matcher interface {
	Match(path string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(path string) bool

func (f MatcherFunc) Match(path string) bool {
	return f(path)
}

// MatchAll admits every path.
func MatchAll() Matcher {
	return MatcherFunc(func(string) bool { return true })
}

type regexpMatcher struct {
	re *regexp.Regexp
}

func (m regexpMatcher) Match(path string) bool {
	return m.re.MatchString(path)
}

// MatchRegexp admits paths matching the regular expression expr. The
// expression is not anchored; use ^ and $ to match whole paths.
func MatchRegexp(expr string) (Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("match regexp: %w", err)
	}
	return regexpMatcher{re: re}, nil
}

// MustMatchRegexp is MatchRegexp for expressions known to be valid.
func MustMatchRegexp(expr string) Matcher {
	m, err := MatchRegexp(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// NotHidden rejects dot files, paths inside dot directories and editor
// backups ending in ~.
func NotHidden() Matcher {
	return MatcherFunc(func(path string) bool {
		return !strings.HasPrefix(path, ".") &&
			!strings.HasSuffix(path, "~") &&
			!strings.Contains(path, "/.")
	})
}

// MatchAllOf admits a path only if every matcher admits it. No matchers
// admits everything.
func MatchAllOf(matchers ...Matcher) Matcher {
	return MatcherFunc(func(path string) bool {
		for _, m := range matchers {
			if m != nil && !m.Match(path) {
				return false
			}
		}
		return true
	})
}
