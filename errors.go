package staticasset

import "errors"

var (
	// ErrNotFound is returned when no asset is registered for a path
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedHeader is returned when a validator or range header cannot be parsed
	ErrMalformedHeader = errors.New("malformed header")
	// ErrUnsatisfiable is returned when a range request selects no bytes of the asset
	ErrUnsatisfiable = errors.New("range not satisfiable")
	// ErrStaleUpdate is returned when a change carries a generation older than the stored entry
	ErrStaleUpdate = errors.New("stale update")
)
