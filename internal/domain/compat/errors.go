package compat

import "errors"

// Sentinel kinds for compatibility configuration errors.
var (
	ErrInvalidWeights = errors.New("invalid dimension weights")
)
