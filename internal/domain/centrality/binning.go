// Package centrality classifies events into centrality percentile bins.
//
// A Binning is validated once at construction and then used as a total
// function from a centrality value to at most one Bin. Values that fall
// outside every configured range are vetoes, never errors.
package centrality

import (
	"fmt"
	"sort"
)

// Domain bounds of a centrality percentile.
const (
	MinPercentile = 0.0
	MaxPercentile = 100.0
)

// Range is a half-open percentile interval [Low, High).
type Range struct {
	Low  float64 `koanf:"low"`
	High float64 `koanf:"high"`
}

// Contains reports whether c lies in [Low, High).
func (r Range) Contains(c float64) bool {
	return c >= r.Low && c < r.High
}

func (r Range) String() string {
	return fmt.Sprintf("[%g,%g)", r.Low, r.High)
}

// Bin is one configured centrality class. Index is its position in the
// configuration and identifies the bin's accumulation state.
type Bin struct {
	Index int
	Range
}

// Binning is an immutable, validated set of non-overlapping bins.
type Binning struct {
	bins []Bin
}

// NewBinning validates ranges and builds a Binning. Ranges must be
// non-inverted, inside [0,100] and pairwise disjoint; they need not cover
// the whole domain.
func NewBinning(ranges []Range) (*Binning, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no bins configured", ErrInvalidBinning)
	}

	bins := make([]Bin, len(ranges))
	for i, r := range ranges {
		if r.Low >= r.High {
			return nil, fmt.Errorf("%w: bin %d %s is inverted or empty", ErrInvalidBinning, i, r)
		}
		if r.Low < MinPercentile || r.High > MaxPercentile {
			return nil, fmt.Errorf("%w: bin %d %s outside [0,100]", ErrInvalidBinning, i, r)
		}
		bins[i] = Bin{Index: i, Range: r}
	}

	sorted := make([]Bin, len(bins))
	copy(sorted, bins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Low < prev.High {
			return nil, fmt.Errorf("%w: bin %d %s overlaps bin %d %s",
				ErrInvalidBinning, cur.Index, cur.Range, prev.Index, prev.Range)
		}
	}

	return &Binning{bins: bins}, nil
}

// Lookup returns the bin containing c. ok is false when c is outside
// [0,100) or matches no configured bin.
func (b *Binning) Lookup(c float64) (Bin, bool) {
	if !Valid(c) {
		return Bin{}, false
	}
	for _, bin := range b.bins {
		if bin.Contains(c) {
			return bin, true
		}
	}
	return Bin{}, false
}

// Bins returns a copy of the configured bins in configuration order.
func (b *Binning) Bins() []Bin {
	out := make([]Bin, len(b.bins))
	copy(out, b.bins)
	return out
}

// Len returns the number of bins.
func (b *Binning) Len() int { return len(b.bins) }

// Valid reports whether c is a usable centrality percentile, i.e. in [0,100).
func Valid(c float64) bool {
	return c >= MinPercentile && c < MaxPercentile
}
