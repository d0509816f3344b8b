// Package model contains the particle and event value types that flow from
// event sources through the correlation pipeline.
package model

import (
	"go-hep.org/x/hep/fmom"
)

// PDG Monte Carlo codes used by the default selections.
const (
	PIDPhoton = 22
	PIDPi0    = 111
)

// Particle is a final-state particle as seen by the analysis.
// Phi may be in any range; consumers normalize differences themselves.
type Particle struct {
	PID    int     // PDG Monte Carlo code
	Pt     float64 // transverse momentum, GeV
	Eta    float64 // pseudorapidity
	Phi    float64 // azimuthal angle, rad
	Charge float64 // electric charge, units of e
}

// FromP4 builds a Particle from a four-momentum.
func FromP4(pid int, charge float64, p fmom.P4) Particle {
	return Particle{
		PID:    pid,
		Pt:     p.Pt(),
		Eta:    p.Eta(),
		Phi:    p.Phi(),
		Charge: charge,
	}
}

// Charged reports whether the particle carries electric charge.
func (p Particle) Charged() bool {
	return p.Charge != 0
}
