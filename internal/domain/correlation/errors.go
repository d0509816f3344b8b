package correlation

import "errors"

// Sentinel kinds for correlation errors.
var (
	ErrNotConfigured    = errors.New("pipeline not configured")
	ErrFinalized        = errors.New("accumulator already finalized")
	ErrAlreadyFinalized = errors.New("finalize already ran")
	ErrUnknownBin       = errors.New("unknown centrality bin")
	ErrUnknownBand      = errors.New("unknown trigger band")
	ErrZeroTriggers     = errors.New("no trigger particles in bin")
)
