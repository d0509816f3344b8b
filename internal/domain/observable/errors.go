package observable

import "errors"

// Sentinel kinds for observable errors.
var (
	ErrInvalidAxis   = errors.New("invalid axis")
	ErrAlreadyScaled = errors.New("distribution already scaled")
	ErrInvalidScale  = errors.New("invalid scale factor")
)
