package service

import "errors"

// Sentinel errors for service operations.
var (
	ErrNotStarted = errors.New("service not started")
	ErrOpenStore  = errors.New("open rating store")
)
