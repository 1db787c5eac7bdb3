package matching

import "errors"

// Sentinel kinds for match finding errors.
var (
	// ErrTargetRatings wraps a failure to load the requesting user's ratings.
	// Nothing can be scored without them, so it is the only error Find returns.
	ErrTargetRatings = errors.New("cannot load target user ratings")
	ErrNoDirectory   = errors.New("no candidate directory configured")
)
