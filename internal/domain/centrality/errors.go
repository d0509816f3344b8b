package centrality

import "errors"

// Sentinel kinds for centrality errors.
var (
	ErrInvalidBinning = errors.New("invalid centrality binning")
	ErrInvalidWarmup  = errors.New("invalid warm-up event count")
)
