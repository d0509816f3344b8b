package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrNoInputs     = errors.New("no input files")
	ErrDecode       = errors.New("decode event")
	ErrClosed       = errors.New("source closed")
	ErrInvalidCount = errors.New("invalid event count")
)
