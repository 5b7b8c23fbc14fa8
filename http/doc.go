// Package http serves staticasset assets over net/http.
//
// The handler resolves the request path against a Source, runs the
// conditional and range negotiation of the staticasset package and writes
// the resulting status, headers and body. Bodies are written straight from
// the asset's bytes; multi-range responses are assembled as a list of
// segments without copying.
//
// # Features
//
//   - Conditional requests: If-Match, If-None-Match, If-Modified-Since,
//     If-Unmodified-Since and If-Range
//   - Single and multiple byte ranges (multipart/byteranges)
//   - Three server modes: Store (exact paths), Static (static website), SPA (single page app)
//   - Cache busting by query parameter or file name suffix
//   - JSON error responses
//   - Configurable CORS support
//
// # Server Modes
//
// Store Mode: Serves exact paths only. Misses return a JSON 404.
//
// Static Mode: Serves static websites with automatic index.html fallback for directories.
//
// SPA Mode: Single Page Application mode that returns index.html for 404s to support
// client-side routing.
//
// # Cache Busting
//
// With a CacheBuster enabled, requests that do not name the current entity
// tag of an asset are redirected with 307 to the URL that does:
//
//	GET /app.js            -> 307 Location: /app.js?v=q25fZAd-fY  (query)
//	GET /app.js            -> 307 Location: /app.q25fZAd-fY.js    (suffix)
//
// Requests naming the current tag are served with
// staticasset.ImmutableCacheControl. Index and SPA fallbacks are never
// busted.
//
// # Usage
//
//	reg := registry.New(registry.Options{Loader: source})
//	handler := http.NewHandler(&http.HandlerConfig{
//	    Mode:         staticasset.ModeStatic,
//	    CacheControl: staticasset.DefaultCacheControl,
//	}, reg)
//	http.ListenAndServe(":8080", handler.Router())
//
// Only GET, HEAD and OPTIONS are routed. Other methods receive 405 with an
// Allow header.
package http
