// Package registry holds assets that change while the server runs.
//
// A Registry maps normalized paths to immutable staticasset.Asset
// snapshots. Readers load an atomic pointer and never block; a change
// replaces the whole entry, so a reader holding an older snapshot keeps
// serving it consistently.
//
// Changes arrive from a watch feed (see the filesystem package) and pass a
// Matcher before admission. Every change carries a generation; a change
// whose generation is not newer than the stored entry is discarded, which
// makes duplicate and out-of-order delivery harmless. Removed paths leave a
// tombstone holding their generation; Compact drops old ones.
//
//	reg := registry.New(registry.Options{
//	    Matcher: registry.MatchAllOf(registry.NotHidden(), registry.MustMatchRegexp(`\.(css|js)$`)),
//	    Loader:  source,
//	    Warmup:  registry.WarmupHot,
//	})
//	go reg.Run(ctx, watcher.Changes())
//	asset, err := reg.Get(ctx, "css/site.css")
package registry
