package staticasset

import (
	"net/url"
	"strings"
)

const (
	// DefaultQueryKey is the query parameter carrying the tag in BustQuery mode.
	DefaultQueryKey = "v"
	// DefaultSeparator joins the base name and the tag in BustSuffix mode.
	DefaultSeparator = "."
)

// CacheBuster rewrites asset URLs so they embed the asset's entity tag.
// Responses for URLs carrying the current tag can be cached forever; URLs
// carrying no tag or an old one are redirected to the current URL.
type CacheBuster struct {
	Mode      BustMode
	QueryKey  string
	Separator string
}

// Enabled reports whether URLs are rewritten at all.
func (c CacheBuster) Enabled() bool {
	return c.Mode == BustQuery || c.Mode == BustSuffix
}

func (c CacheBuster) queryKey() string {
	if c.QueryKey == "" {
		return DefaultQueryKey
	}
	return c.QueryKey
}

func (c CacheBuster) separator() string {
	if c.Separator == "" {
		return DefaultSeparator
	}
	return c.Separator
}

// URL returns the cache busted form of urlPath for tag.
//
//	query:  /app.js -> /app.js?v=q25fZAd-fY
//	suffix: /app.js -> /app.q25fZAd-fY.js
func (c CacheBuster) URL(urlPath string, tag EntityTag) string {
	opaque := tag.Opaque()
	switch c.Mode {
	case BustQuery:
		return urlPath + "?" + url.QueryEscape(c.queryKey()) + "=" + url.QueryEscape(opaque)
	case BustSuffix:
		dir, name := splitDir(urlPath)
		if ext, ok := FileExt(name); ok {
			return dir + name[:len(name)-len(ext)-1] + c.separator() + opaque + "." + ext
		}
		return dir + name + c.separator() + opaque
	default:
		return urlPath
	}
}

// Check decides whether a request for reqPath with rawQuery already names
// the current revision of an asset tagged tag. plainPath is the URL of that
// asset without any tag; it equals reqPath unless the asset was resolved
// through SplitSuffix. When current is true the response may be served as
// immutable. Otherwise location is the URL the client should be redirected
// to, or empty when busting is disabled.
func (c CacheBuster) Check(reqPath, rawQuery, plainPath string, tag EntityTag) (location string, current bool) {
	opaque := tag.Opaque()
	switch c.Mode {
	case BustQuery:
		values, err := url.ParseQuery(rawQuery)
		if err == nil && values.Get(c.queryKey()) == opaque {
			return "", true
		}
		return c.withQuery(plainPath, rawQuery, opaque), false

	case BustSuffix:
		if _, got, ok := c.SplitSuffix(reqPath); ok && got == opaque {
			return "", true
		}
		location = c.URL(plainPath, tag)
		if rawQuery != "" {
			location += "?" + rawQuery
		}
		return location, false

	default:
		return "", false
	}
}

// SplitSuffix strips a tag inserted by BustSuffix from the last segment of
// urlPath. It returns the plain path and the opaque tag, or false when the
// segment carries no tag.
func (c CacheBuster) SplitSuffix(urlPath string) (base, opaque string, ok bool) {
	dir, name := splitDir(urlPath)
	if e, hasExt := FileExt(name); hasExt {
		if stem, opaque, ok := c.cutTag(name[:len(name)-len(e)-1]); ok {
			return dir + stem + "." + e, opaque, true
		}
	}
	if stem, opaque, ok := c.cutTag(name); ok {
		return dir + stem, opaque, true
	}
	return "", "", false
}

// cutTag splits stem<sep><tag> into stem and tag.
func (c CacheBuster) cutTag(s string) (stem, opaque string, ok bool) {
	sep := c.separator()
	cut := len(s) - etagOpaqueLen - len(sep)
	if cut <= 0 || s[cut:cut+len(sep)] != sep {
		return "", "", false
	}
	opaque = s[cut+len(sep):]
	if !isOpaqueTag(opaque) {
		return "", "", false
	}
	return s[:cut], opaque, true
}

// withQuery places key=opaque first and drops any previous value of key.
func (c CacheBuster) withQuery(urlPath, rawQuery, opaque string) string {
	key := c.queryKey()
	var b strings.Builder
	b.WriteString(urlPath)
	b.WriteByte('?')
	b.WriteString(url.QueryEscape(key))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(opaque))
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(name); err == nil && unescaped == key {
			continue
		}
		b.WriteByte('&')
		b.WriteString(pair)
	}
	return b.String()
}

func splitDir(urlPath string) (dir, name string) {
	i := strings.LastIndexByte(urlPath, '/')
	return urlPath[:i+1], urlPath[i+1:]
}

// isOpaqueTag reports whether s looks like a tag produced by ComputeETag.
func isOpaqueTag(s string) bool {
	if len(s) != etagOpaqueLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
