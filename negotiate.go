package staticasset

import (
	"net/http"
	"strings"
	"time"
)

// Request carries the request fields the negotiator consults. Empty strings
// mean the header was not sent.
type Request struct {
	Method            string
	IfMatch           string
	IfNoneMatch       string
	IfModifiedSince   string
	IfUnmodifiedSince string
	Range             string
	IfRange           string
}

// RequestFromHTTP extracts the negotiation inputs from r. Repeated list
// headers are joined with commas.
func RequestFromHTTP(r *http.Request) Request {
	return Request{
		Method:            r.Method,
		IfMatch:           strings.Join(r.Header.Values("If-Match"), ","),
		IfNoneMatch:       strings.Join(r.Header.Values("If-None-Match"), ","),
		IfModifiedSince:   r.Header.Get("If-Modified-Since"),
		IfUnmodifiedSince: r.Header.Get("If-Unmodified-Since"),
		Range:             r.Header.Get("Range"),
		IfRange:           r.Header.Get("If-Range"),
	}
}

// IsReadMethod reports whether method is GET or HEAD. An empty method is
// treated as GET, matching net/http.
func IsReadMethod(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead:
		return true
	default:
		return false
	}
}

// DecisionKind is the response shape chosen for a request.
type DecisionKind int

const (
	// DecisionFull serves the whole asset with 200.
	DecisionFull DecisionKind = iota
	// DecisionNotModified answers 304 without a body.
	DecisionNotModified
	// DecisionPreconditionFailed answers 412 without a body.
	DecisionPreconditionFailed
	// DecisionRangeNotSatisfiable answers 416 with Content-Range bytes */length.
	DecisionRangeNotSatisfiable
	// DecisionPartial serves the ranges in Decision.Ranges with 206.
	DecisionPartial
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionFull:
		return "full"
	case DecisionNotModified:
		return "not_modified"
	case DecisionPreconditionFailed:
		return "precondition_failed"
	case DecisionRangeNotSatisfiable:
		return "range_not_satisfiable"
	case DecisionPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Decision is the outcome of negotiation. Ranges is non-empty exactly when
// Kind is DecisionPartial.
type Decision struct {
	Kind   DecisionKind
	Ranges RangeSet
}

// Negotiate evaluates the conditional and range headers of req against a.
// It never fails: malformed validators are ignored and malformed ranges fall
// back to the full body.
//
// Evaluation order, first match wins:
//  1. If-Match without a strong match: precondition failed.
//  2. If-Unmodified-Since older than the asset: precondition failed.
//  3. If-None-Match with a weak match: not modified for GET/HEAD,
//     precondition failed otherwise.
//  4. If-Modified-Since, only without If-None-Match, not older than the
//     asset: not modified.
//  5. Range, gated by If-Range: partial or range not satisfiable.
//  6. Full body.
func Negotiate(req Request, a Asset) Decision {
	read := IsReadMethod(req.Method)
	tag := a.ETag()
	modTime := a.ModTime()

	if strings.TrimSpace(req.IfMatch) != "" {
		if list, err := ParseETagList(req.IfMatch); err == nil && !list.MatchStrong(tag) {
			return Decision{Kind: DecisionPreconditionFailed}
		}
	}

	if date, ok := parseHTTPDate(req.IfUnmodifiedSince); ok && !modTime.IsZero() {
		if modTime.After(date) {
			return Decision{Kind: DecisionPreconditionFailed}
		}
	}

	noneMatchSent := false
	if strings.TrimSpace(req.IfNoneMatch) != "" {
		if list, err := ParseETagList(req.IfNoneMatch); err == nil {
			noneMatchSent = true
			if list.MatchWeak(tag) {
				if read {
					return Decision{Kind: DecisionNotModified}
				}
				return Decision{Kind: DecisionPreconditionFailed}
			}
		}
	}

	if !noneMatchSent && read && !modTime.IsZero() {
		if date, ok := parseHTTPDate(req.IfModifiedSince); ok && !modTime.After(date) {
			return Decision{Kind: DecisionNotModified}
		}
	}

	if !read {
		return Decision{Kind: DecisionFull}
	}

	plan := ParseRange(req.Range, a.Len())
	switch plan.Kind {
	case RangeAbsent, RangeMalformed:
		return Decision{Kind: DecisionFull}
	}

	if !ifRangeAllows(req.IfRange, tag, modTime) {
		return Decision{Kind: DecisionFull}
	}

	if plan.Kind == RangeUnsatisfiable {
		return Decision{Kind: DecisionRangeNotSatisfiable}
	}
	return Decision{Kind: DecisionPartial, Ranges: plan.Ranges}
}

// ifRangeAllows reports whether the range request may be honoured. An
// entity tag must match strongly; a date must not be older than modTime.
// Anything unparseable disables the range.
func ifRangeAllows(ifRange string, tag EntityTag, modTime time.Time) bool {
	ifRange = strings.TrimSpace(ifRange)
	if ifRange == "" {
		return true
	}
	if strings.HasPrefix(ifRange, `"`) || strings.HasPrefix(ifRange, "W/") {
		candidate, err := ParseEntityTag(ifRange)
		if err != nil {
			return false
		}
		return candidate.StrongMatch(tag)
	}
	date, ok := parseHTTPDate(ifRange)
	if !ok || modTime.IsZero() {
		return false
	}
	return !date.Before(modTime)
}

func parseHTTPDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
