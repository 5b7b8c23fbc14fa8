package staticasset

import "fmt"

// ServerMode selects how request paths that name no asset are resolved.
type ServerMode string

const (
	// ModeStore serves exact paths only.
	ModeStore ServerMode = "store"
	// ModeStatic falls back to index.html inside directories.
	ModeStatic ServerMode = "static"
	// ModeSPA falls back to the root index.html for unknown paths.
	ModeSPA ServerMode = "spa"
)

func (m ServerMode) IsValid() bool {
	switch m {
	case ModeStore, ModeStatic, ModeSPA:
		return true
	default:
		return false
	}
}

func ParseServerMode(s string) (ServerMode, error) {
	mode := ServerMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid server mode: %s (valid modes: store, static, spa)", s)
	}
	return mode, nil
}

// BustMode selects how asset URLs embed the entity tag.
type BustMode string

const (
	// BustNone serves assets at their plain paths.
	BustNone BustMode = "none"
	// BustQuery adds the tag as a query parameter: app.js?v=tag.
	BustQuery BustMode = "query"
	// BustSuffix inserts the tag before the extension: app.tag.js.
	BustSuffix BustMode = "suffix"
)

func (m BustMode) IsValid() bool {
	switch m {
	case BustNone, BustQuery, BustSuffix:
		return true
	default:
		return false
	}
}

func ParseBustMode(s string) (BustMode, error) {
	mode := BustMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid cache busting mode: %s (valid modes: none, query, suffix)", s)
	}
	return mode, nil
}
