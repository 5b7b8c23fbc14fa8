package http

import "errors"

// ErrMethodNotAllowed is returned for methods other than GET, HEAD and OPTIONS.
var ErrMethodNotAllowed = errors.New("method not allowed")
