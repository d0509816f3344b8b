// Package observable holds the weighted distributions accumulated per
// centrality bin. Each Distribution wraps a go-hep histogram and can be
// scaled exactly once.
package observable

import (
	"fmt"
	"math"
	"sync"

	"go-hep.org/x/hep/hbook"
)

// Kind identifies the observable a distribution measures.
type Kind int

// Observable kinds.
const (
	KindYield Kind = iota // Δφ per-trigger yield
	KindIAA               // yield vs associated pt
	KindIAAz              // yield vs zT = pt_assoc/pt_trig
)

// Kinds lists every kind in output order.
var Kinds = []Kind{KindYield, KindIAA, KindIAAz}

func (k Kind) String() string {
	switch k {
	case KindYield:
		return "yield"
	case KindIAA:
		return "iaa"
	case KindIAAz:
		return "iaaz"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Key identifies a distribution within a run.
type Key struct {
	Bin  int  // centrality bin index
	Kind Kind // observable kind
	Sub  int  // sub-index among related plots
}

func (k Key) String() string {
	return fmt.Sprintf("%s-c%d-s%d", k.Kind, k.Bin, k.Sub)
}

// Path is the histogram path used when persisting the distribution.
func (k Key) Path() string {
	return fmt.Sprintf("AZICORR/%s/c%02d-x01-y%02d", k.Kind, k.Bin, k.Sub+1)
}

// Axis is a uniform binning of [Min, Max).
type Axis struct {
	Bins int
	Min  float64
	Max  float64
}

// Validate checks the axis.
func (a Axis) Validate() error {
	if a.Bins < 1 {
		return fmt.Errorf("%w: %d bins", ErrInvalidAxis, a.Bins)
	}
	if !(a.Min < a.Max) {
		return fmt.Errorf("%w: [%g,%g)", ErrInvalidAxis, a.Min, a.Max)
	}
	return nil
}

// BinContent is a read-only view of one histogram bin.
type BinContent struct {
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	SumW    float64 `json:"sum_w"`
	Entries int64   `json:"entries"`
}

// Distribution is a weighted 1D histogram with a scale-once guard.
type Distribution struct {
	mu        sync.Mutex
	key       Key
	axis      Axis
	h         *hbook.H1D
	underflow float64
	overflow  float64
	scaled    bool
	factor    float64
}

// New books a distribution.
func New(key Key, axis Axis, title string) (*Distribution, error) {
	if err := axis.Validate(); err != nil {
		return nil, err
	}
	h := hbook.NewH1D(axis.Bins, axis.Min, axis.Max)
	ann := h.Annotation()
	ann["name"] = key.Path()
	ann["title"] = title
	return &Distribution{key: key, axis: axis, h: h, factor: 1}, nil
}

// Key returns the distribution key.
func (d *Distribution) Key() Key { return d.key }

// Axis returns the distribution axis.
func (d *Distribution) Axis() Axis { return d.axis }

// Fill deposits weight w at x. Values outside the axis land in the
// underflow or overflow.
func (d *Distribution) Fill(x, w float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case x < d.axis.Min:
		d.underflow += w
	case x >= d.axis.Max:
		d.overflow += w
	}
	d.h.Fill(x, w)
}

// Scale multiplies every weight by f. It may be called once; f must be
// finite and positive.
func (d *Distribution) Scale(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidScale, f)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scaled {
		return fmt.Errorf("%w: %s", ErrAlreadyScaled, d.key)
	}
	d.h.Scale(f)
	d.underflow *= f
	d.overflow *= f
	d.factor = f
	d.scaled = true
	return nil
}

// Scaled reports whether Scale has been applied.
func (d *Distribution) Scaled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scaled
}

// Factor returns the applied scale factor, 1 when unscaled.
func (d *Distribution) Factor() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.factor
}

// Entries returns the number of fills, including out-of-range ones.
func (d *Distribution) Entries() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.h.Entries()
}

// SumW returns the total weight, including out-of-range fills.
func (d *Distribution) SumW() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.h.SumW()
}

// Underflow returns the weight deposited below the axis.
func (d *Distribution) Underflow() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.underflow
}

// Overflow returns the weight deposited at or above the axis maximum.
func (d *Distribution) Overflow() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overflow
}

// Bins returns the in-range bin contents.
func (d *Distribution) Bins() []BinContent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]BinContent, len(d.h.Binning.Bins))
	for i, b := range d.h.Binning.Bins {
		out[i] = BinContent{Low: b.XMin(), High: b.XMax(), SumW: b.SumW(), Entries: b.Entries()}
	}
	return out
}

// At returns the weight of the bin containing x. ok is false outside the axis.
func (d *Distribution) At(x float64) (float64, bool) {
	if x < d.axis.Min || x >= d.axis.Max {
		return 0, false
	}
	i := int((x - d.axis.Min) / (d.axis.Max - d.axis.Min) * float64(d.axis.Bins))
	if i >= d.axis.Bins {
		i = d.axis.Bins - 1
	}
	bins := d.Bins()
	return bins[i].SumW, true
}

// Annotate sets a metadata entry persisted with the histogram.
func (d *Distribution) Annotate(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.h.Annotation()[key] = value
}

// Annotation returns the value stored under key.
func (d *Distribution) Annotation(key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.h.Annotation()[key]
	return v, ok
}

// MarshalYODA renders the histogram in YODA text format.
func (d *Distribution) MarshalYODA() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.h.MarshalYODA()
}
