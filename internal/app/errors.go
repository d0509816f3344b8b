package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrRunning  = errors.New("a run is already in progress")
	ErrNoSource = errors.New("no event source")
	ErrWorkers  = errors.New("workers failed to accumulate events")
)
