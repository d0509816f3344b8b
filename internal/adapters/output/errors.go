package output

import "errors"

// Sentinel kinds for output errors.
var (
	ErrClosed   = errors.New("sink closed")
	ErrNoResult = errors.New("result has no distribution")
)
