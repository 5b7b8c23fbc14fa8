package staticasset

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// MaxRanges caps the number of range specs accepted in one Range header.
// Headers with more specs are treated as malformed.
const MaxRanges = 100

// ByteRange is an inclusive span [Start, End] of an asset's bytes.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by r.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats r as a Content-Range value against size.
func (r ByteRange) ContentRange(size int64) string {
	return "bytes " + strconv.FormatInt(r.Start, 10) + "-" + strconv.FormatInt(r.End, 10) + "/" + strconv.FormatInt(size, 10)
}

// RangeSet is an ordered list of byte ranges sorted by Start. Overlapping
// and adjacent ranges are kept as requested.
type RangeSet []ByteRange

// TotalLen returns the sum of the lengths of all ranges.
func (s RangeSet) TotalLen() int64 {
	var n int64
	for _, r := range s {
		n += r.Len()
	}
	return n
}

// RangeKind classifies the outcome of parsing a Range header.
type RangeKind int

const (
	// RangeAbsent means no Range header was sent, or it used a unit other than bytes.
	RangeAbsent RangeKind = iota
	// RangeSatisfiable means at least one span overlaps the asset.
	RangeSatisfiable
	// RangeUnsatisfiable means the header was valid but no span overlaps the asset.
	RangeUnsatisfiable
	// RangeMalformed means the header could not be parsed.
	RangeMalformed
)

func (k RangeKind) String() string {
	switch k {
	case RangeAbsent:
		return "absent"
	case RangeSatisfiable:
		return "satisfiable"
	case RangeUnsatisfiable:
		return "unsatisfiable"
	case RangeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// RangePlan is the result of planning a Range header against an asset
// length. Ranges is only populated for RangeSatisfiable.
type RangePlan struct {
	Kind   RangeKind
	Ranges RangeSet
}

// Err returns ErrUnsatisfiable or ErrMalformedHeader for plans of those
// kinds, and nil otherwise. Negotiate never fails on either; Err exists for
// callers that log or surface them.
func (p RangePlan) Err() error {
	switch p.Kind {
	case RangeUnsatisfiable:
		return ErrUnsatisfiable
	case RangeMalformed:
		return ErrMalformedHeader
	default:
		return nil
	}
}

// rangeSpec is one unresolved element of a range-set. start < 0 marks a
// suffix range of suffix bytes; end < 0 marks an open-ended range.
type rangeSpec struct {
	start  int64
	end    int64
	suffix int64
}

// ParseRange parses a Range header value and resolves it against size.
//
// An empty header or a unit other than bytes yields RangeAbsent. Syntax
// errors, a start past an explicit end, a zero suffix length and more than
// MaxRanges specs yield RangeMalformed. Specs starting at or past size are
// dropped; when nothing remains the plan is RangeUnsatisfiable. Ends are
// clamped to size-1 and the surviving ranges are sorted by start.
func ParseRange(header string, size int64) RangePlan {
	header = strings.TrimSpace(header)
	if header == "" {
		return RangePlan{Kind: RangeAbsent}
	}

	unit, set, ok := strings.Cut(header, "=")
	if !ok {
		return RangePlan{Kind: RangeMalformed}
	}
	if !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return RangePlan{Kind: RangeAbsent}
	}

	specs, ok := parseRangeSpecs(set)
	if !ok {
		return RangePlan{Kind: RangeMalformed}
	}

	ranges := make(RangeSet, 0, len(specs))
	for _, spec := range specs {
		if r, ok := spec.resolve(size); ok {
			ranges = append(ranges, r)
		}
	}
	if len(ranges) == 0 {
		return RangePlan{Kind: RangeUnsatisfiable}
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})
	return RangePlan{Kind: RangeSatisfiable, Ranges: ranges}
}

func parseRangeSpecs(set string) ([]rangeSpec, bool) {
	var specs []rangeSpec
	for _, elem := range strings.Split(set, ",") {
		elem = strings.Trim(elem, " \t")
		if elem == "" {
			continue
		}
		if len(specs) == MaxRanges {
			return nil, false
		}

		first, last, ok := strings.Cut(elem, "-")
		if !ok {
			return nil, false
		}
		first = strings.Trim(first, " \t")
		last = strings.Trim(last, " \t")

		if first == "" {
			n, ok := parsePos(last)
			if !ok || n == 0 {
				return nil, false
			}
			specs = append(specs, rangeSpec{start: -1, end: -1, suffix: n})
			continue
		}

		start, ok := parsePos(first)
		if !ok {
			return nil, false
		}
		spec := rangeSpec{start: start, end: -1}
		if last != "" {
			end, ok := parsePos(last)
			if !ok || end < start {
				return nil, false
			}
			spec.end = end
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, false
	}
	return specs, true
}

// parsePos parses a non-empty run of ASCII digits. Values that overflow
// int64 saturate at math.MaxInt64, which the planner then clamps.
func parsePos(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return math.MaxInt64, true
	}
	return n, true
}

func (s rangeSpec) resolve(size int64) (ByteRange, bool) {
	if size <= 0 {
		return ByteRange{}, false
	}
	if s.start < 0 {
		start := size - s.suffix
		if start < 0 {
			start = 0
		}
		return ByteRange{Start: start, End: size - 1}, true
	}
	if s.start >= size {
		return ByteRange{}, false
	}
	end := s.end
	if end < 0 || end >= size {
		end = size - 1
	}
	return ByteRange{Start: s.start, End: end}, true
}
