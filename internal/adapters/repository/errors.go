package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound = errors.New("result not found")
	ErrNoResult = errors.New("result has no distribution")
)
