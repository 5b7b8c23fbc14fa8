package staticasset

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultCacheControl makes caches revalidate on every use.
	DefaultCacheControl = "public, max-age=0, must-revalidate"
	// ImmutableCacheControl is used for URLs that embed the entity tag.
	ImmutableCacheControl = "public, max-age=31536000, immutable"
)

// boundaryAttempts bounds how often a colliding multipart boundary is regenerated.
const boundaryAttempts = 8

// Field is a single response header.
type Field struct {
	Name  string
	Value string
}

// Response is the transport independent result of serving an asset.
type Response struct {
	Status int
	Header []Field
	Body   Body
}

// Get returns the first value of the named header, or "".
func (r Response) Get(name string) string {
	for _, f := range r.Header {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// ApplyHeader copies the response headers into h, replacing existing values.
func (r Response) ApplyHeader(h http.Header) {
	for _, f := range r.Header {
		h.Set(f.Name, f.Value)
	}
}

// BodyKind describes the shape of a response body.
type BodyKind int

const (
	// BodyEmpty has no segments.
	BodyEmpty BodyKind = iota
	// BodyFull is the whole asset as a single segment.
	BodyFull
	// BodySlice is one contiguous range of the asset.
	BodySlice
	// BodyMultipart interleaves part headers with range slices.
	BodyMultipart
)

func (k BodyKind) String() string {
	switch k {
	case BodyEmpty:
		return "empty"
	case BodyFull:
		return "full"
	case BodySlice:
		return "slice"
	case BodyMultipart:
		return "multipart"
	default:
		return "unknown"
	}
}

// Body is a response body described as a sequence of byte segments. Segments
// taken from the asset alias its data; only multipart framing is allocated.
type Body struct {
	kind     BodyKind
	segments [][]byte
	length   int64
}

func newBody(kind BodyKind, segments ...[]byte) Body {
	var n int64
	for _, s := range segments {
		n += int64(len(s))
	}
	return Body{kind: kind, segments: segments, length: n}
}

func (b Body) Kind() BodyKind {
	return b.kind
}

// Len returns the total body length in bytes.
func (b Body) Len() int64 {
	return b.length
}

// Segments returns the body segments in order. The outer slice is a copy;
// the segments themselves must not be modified.
func (b Body) Segments() [][]byte {
	return append([][]byte(nil), b.segments...)
}

// WriteTo writes the body to w, using vectored writes where w supports them.
func (b Body) WriteTo(w io.Writer) (int64, error) {
	bufs := net.Buffers(b.Segments())
	return bufs.WriteTo(w)
}

// Reader returns a reader over the body without copying the segments.
func (b Body) Reader() io.Reader {
	readers := make([]io.Reader, 0, len(b.segments))
	for _, s := range b.segments {
		readers = append(readers, bytes.NewReader(s))
	}
	return io.MultiReader(readers...)
}

// Bytes returns a freshly allocated copy of the whole body.
func (b Body) Bytes() []byte {
	out := make([]byte, 0, b.length)
	for _, s := range b.segments {
		out = append(out, s...)
	}
	return out
}

// Builder turns negotiation decisions into responses. The zero value uses
// DefaultCacheControl and random multipart boundaries.
type Builder struct {
	// CacheControl is sent on 200, 206 and 304 responses.
	CacheControl string
	// Boundary generates multipart boundaries. It is called again when a
	// generated boundary occurs inside one of the parts.
	Boundary func() string
}

// Respond negotiates req against a and builds the response.
func (b Builder) Respond(req Request, a Asset) Response {
	return b.Build(Negotiate(req, a), a)
}

// Build renders d for a. It has no side effects.
func (b Builder) Build(d Decision, a Asset) Response {
	size := a.Len()

	switch d.Kind {
	case DecisionNotModified:
		return Response{
			Status: http.StatusNotModified,
			Header: []Field{
				{Name: "ETag", Value: a.ETag().String()},
				{Name: "Cache-Control", Value: b.cacheControl()},
			},
		}

	case DecisionPreconditionFailed:
		return Response{
			Status: http.StatusPreconditionFailed,
			Header: []Field{
				{Name: "Content-Length", Value: "0"},
			},
		}

	case DecisionRangeNotSatisfiable:
		return Response{
			Status: http.StatusRequestedRangeNotSatisfiable,
			Header: []Field{
				{Name: "Content-Range", Value: "bytes */" + strconv.FormatInt(size, 10)},
				{Name: "Content-Length", Value: "0"},
			},
		}

	case DecisionPartial:
		switch len(d.Ranges) {
		case 0:
		case 1:
			return b.single(d.Ranges[0], a)
		default:
			return b.multipart(d.Ranges, a)
		}
	}

	header := b.entityHeader(a, a.ContentType())
	header = append(header, Field{Name: "Content-Length", Value: strconv.FormatInt(size, 10)})
	return Response{
		Status: http.StatusOK,
		Header: header,
		Body:   newBody(BodyFull, a.Data()),
	}
}

func (b Builder) single(r ByteRange, a Asset) Response {
	header := b.entityHeader(a, a.ContentType())
	header = append(header,
		Field{Name: "Content-Range", Value: r.ContentRange(a.Len())},
		Field{Name: "Content-Length", Value: strconv.FormatInt(r.Len(), 10)},
	)
	return Response{
		Status: http.StatusPartialContent,
		Header: header,
		Body:   newBody(BodySlice, a.Data()[r.Start:r.End+1]),
	}
}

func (b Builder) multipart(ranges RangeSet, a Asset) Response {
	data := a.Data()
	boundary := b.boundaryFor(data, ranges)
	size := a.Len()

	segments := make([][]byte, 0, 2*len(ranges)+1)
	for i, r := range ranges {
		var part strings.Builder
		if i > 0 {
			part.WriteString("\r\n")
		}
		part.WriteString("--")
		part.WriteString(boundary)
		part.WriteString("\r\nContent-Type: ")
		part.WriteString(a.ContentType())
		part.WriteString("\r\nContent-Range: ")
		part.WriteString(r.ContentRange(size))
		part.WriteString("\r\n\r\n")
		segments = append(segments, []byte(part.String()), data[r.Start:r.End+1])
	}
	segments = append(segments, []byte("\r\n--"+boundary+"--\r\n"))

	body := newBody(BodyMultipart, segments...)
	header := b.entityHeader(a, "multipart/byteranges; boundary="+boundary)
	header = append(header, Field{Name: "Content-Length", Value: strconv.FormatInt(body.Len(), 10)})
	return Response{
		Status: http.StatusPartialContent,
		Header: header,
		Body:   body,
	}
}

func (b Builder) entityHeader(a Asset, contentType string) []Field {
	header := make([]Field, 0, 7)
	header = append(header,
		Field{Name: "Content-Type", Value: contentType},
		Field{Name: "ETag", Value: a.ETag().String()},
	)
	if !a.ModTime().IsZero() {
		header = append(header, Field{Name: "Last-Modified", Value: a.ModTime().Format(http.TimeFormat)})
	}
	header = append(header,
		Field{Name: "Cache-Control", Value: b.cacheControl()},
		Field{Name: "Accept-Ranges", Value: "bytes"},
	)
	return header
}

func (b Builder) cacheControl() string {
	if b.CacheControl == "" {
		return DefaultCacheControl
	}
	return b.CacheControl
}

func (b Builder) boundaryFor(data []byte, ranges RangeSet) string {
	gen := b.Boundary
	if gen == nil {
		gen = RandomBoundary
	}
	boundary := gen()
	for attempt := 1; attempt < boundaryAttempts && collides(boundary, data, ranges); attempt++ {
		boundary = gen()
	}
	return boundary
}

func collides(boundary string, data []byte, ranges RangeSet) bool {
	marker := []byte(boundary)
	for _, r := range ranges {
		if bytes.Contains(data[r.Start:r.End+1], marker) {
			return true
		}
	}
	return false
}

// RandomBoundary returns 32 random hex characters.
func RandomBoundary() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
