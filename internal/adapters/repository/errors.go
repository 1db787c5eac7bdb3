package repository

import "errors"

// Sentinel kinds for rating store errors.
var (
	ErrNotFound = errors.New("user has no ratings")
	ErrClosed   = errors.New("rating store closed")
	ErrBreaker  = errors.New("rating store unavailable")
)
