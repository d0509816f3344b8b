package correlation

import "math"

// TwoPi is the full azimuth.
const TwoPi = 2 * math.Pi

// DeltaPhi returns assocPhi - trigPhi shifted up by the smallest multiple
// of 2π that makes it non-negative. Differences at or above 2π are returned
// unchanged.
func DeltaPhi(trigPhi, assocPhi float64) float64 {
	d := assocPhi - trigPhi
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return d
	}
	if d < 0 {
		d += TwoPi * math.Ceil(-d/TwoPi)
		// rounding can leave d a few ulps below zero
		if d < 0 {
			d += TwoPi
		}
		if d >= TwoPi {
			d = 0
		}
	}
	return d
}
