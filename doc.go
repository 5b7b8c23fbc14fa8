// Package staticasset serves in-memory byte content as HTTP responses with
// full conditional-request and byte-range support.
//
// The core is a pure negotiation engine. Given the validator and range
// headers of a request and an Asset's metadata it decides the response shape
// and produces headers and a body made of zero-copy slices of the asset.
//
// # Key Components
//
//   - Asset: immutable content with entity tag, modification time and content type
//   - ComputeETag / HashReader: deterministic xxh3 based strong entity tags
//   - ParseRange: Range header parsing and planning against an asset length
//   - Negotiate: If-Match, If-Unmodified-Since, If-None-Match,
//     If-Modified-Since and If-Range evaluation
//   - Builder: status, headers and body for a Decision, including
//     multipart/byteranges
//   - Table: a fixed path to Asset mapping for embedded content
//   - CacheBuster: URLs that embed the entity tag, served as immutable
//
// The registry package adds a concurrently updated path to Asset mapping fed
// by the filesystem watcher, and the http package exposes either source
// through a chi router.
//
// # Example Usage
//
//	asset := staticasset.NewAsset(data, "text/css", modTime)
//	resp := staticasset.Builder{}.Respond(staticasset.RequestFromHTTP(r), asset)
//	resp.ApplyHeader(w.Header())
//	w.WriteHeader(resp.Status)
//	if r.Method != http.MethodHead {
//	    resp.Body.WriteTo(w)
//	}
//
// # Decision Order
//
// Preconditions are evaluated before ranges. A failed If-Match or
// If-Unmodified-Since yields 412, a matching If-None-Match yields 304 on GET
// and HEAD, and If-Modified-Since is consulted only when If-None-Match was
// not sent. Ranges are honoured on GET and HEAD when If-Range, if present,
// still names the current representation.
package staticasset
