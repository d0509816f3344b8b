package model

import "math"

// Event is one collision event.
type Event struct {
	ID     string // unique id for de-duplication
	Number int    // event number assigned by the source

	// ImpactParameter is the generator-level impact parameter in fm, or NaN
	// when the source does not provide one. Only the centrality estimator
	// reads it.
	ImpactParameter float64

	Particles []Particle
}

// HasImpactParameter reports whether the event carries a usable impact parameter.
func (e *Event) HasImpactParameter() bool {
	return !math.IsNaN(e.ImpactParameter) && !math.IsInf(e.ImpactParameter, 0) && e.ImpactParameter >= 0
}
