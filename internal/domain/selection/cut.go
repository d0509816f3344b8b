// Package selection builds particle selections from composable cuts and
// applies them to events.
package selection

import (
	"math"

	"github.com/okian/azicorr/internal/domain/model"
)

// Cut is a predicate over a particle.
type Cut func(p model.Particle) bool

// And returns a cut accepting particles accepted by c and every other cut.
func (c Cut) And(others ...Cut) Cut {
	return All(append([]Cut{c}, others...)...)
}

// Or returns a cut accepting particles accepted by c or any other cut.
func (c Cut) Or(others ...Cut) Cut {
	return Any(append([]Cut{c}, others...)...)
}

// All is the conjunction of cuts. All() accepts everything.
func All(cuts ...Cut) Cut {
	return func(p model.Particle) bool {
		for _, c := range cuts {
			if !c(p) {
				return false
			}
		}
		return true
	}
}

// Any is the disjunction of cuts. Any() accepts nothing.
func Any(cuts ...Cut) Cut {
	return func(p model.Particle) bool {
		for _, c := range cuts {
			if c(p) {
				return true
			}
		}
		return false
	}
}

// Not inverts a cut.
func Not(c Cut) Cut {
	return func(p model.Particle) bool { return !c(p) }
}

// PID accepts particles whose PDG code is one of ids.
func PID(ids ...int) Cut {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(p model.Particle) bool {
		_, ok := set[p.PID]
		return ok
	}
}

// AbsEtaBelow accepts |eta| < limit.
func AbsEtaBelow(limit float64) Cut {
	return func(p model.Particle) bool { return math.Abs(p.Eta) < limit }
}

// PtAbove accepts pt > limit.
func PtAbove(limit float64) Cut {
	return func(p model.Particle) bool { return p.Pt > limit }
}

// PtBelow accepts pt < limit.
func PtBelow(limit float64) Cut {
	return func(p model.Particle) bool { return p.Pt < limit }
}

// PtIn accepts pt in [low, high).
func PtIn(low, high float64) Cut {
	return func(p model.Particle) bool { return p.Pt >= low && p.Pt < high }
}

// Charged accepts particles with non-zero charge.
func Charged() Cut {
	return func(p model.Particle) bool { return p.Charged() }
}
