package selection

import "errors"

// Sentinel kinds for selection errors.
var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrUnknownParticle  = errors.New("unknown particle")
)
