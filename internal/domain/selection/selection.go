package selection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/azicorr/internal/domain/model"
)

// Selection is a named, immutable cut. Build it once before processing.
type Selection struct {
	name string
	cut  Cut
}

// New returns a Selection applying cut.
func New(name string, cut Cut) Selection {
	return Selection{name: name, cut: cut}
}

// Name returns the selection name.
func (s Selection) Name() string { return s.name }

// Accept reports whether p passes the selection.
func (s Selection) Accept(p model.Particle) bool {
	return s.cut != nil && s.cut(p)
}

// Select returns the particles of ev passing the selection, ordered by
// descending pt. Particles with equal pt keep their source order. The
// event is not modified.
func (s Selection) Select(ev *model.Event) []model.Particle {
	var out []model.Particle
	for _, p := range ev.Particles {
		if s.Accept(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pt > out[j].Pt })
	return out
}

// Band is a trigger pt window [PtLow, PtHigh) for one particle species.
type Band struct {
	PID    int
	PtLow  float64
	PtHigh float64
}

func (b Band) String() string {
	return fmt.Sprintf("%s [%g,%g) GeV", PIDName(b.PID), b.PtLow, b.PtHigh)
}

func (b Band) contains(p model.Particle) bool {
	return p.PID == b.PID && p.Pt >= b.PtLow && p.Pt < b.PtHigh
}

// TriggerBands is a validated list of trigger bands.
type TriggerBands struct {
	bands []Band
}

// NewTriggerBands validates bands: each must have PtLow < PtHigh, and bands
// of the same species must not overlap.
func NewTriggerBands(bands []Band) (*TriggerBands, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no trigger bands configured", ErrInvalidSelection)
	}
	for i, b := range bands {
		if b.PtLow >= b.PtHigh {
			return nil, fmt.Errorf("%w: trigger band %d [%g,%g) has low >= high", ErrInvalidSelection, i, b.PtLow, b.PtHigh)
		}
		if b.PtLow < 0 {
			return nil, fmt.Errorf("%w: trigger band %d has negative pt", ErrInvalidSelection, i)
		}
		for j := 0; j < i; j++ {
			o := bands[j]
			if o.PID == b.PID && b.PtLow < o.PtHigh && o.PtLow < b.PtHigh {
				return nil, fmt.Errorf("%w: trigger bands %d and %d overlap for pid %d", ErrInvalidSelection, j, i, b.PID)
			}
		}
	}
	out := make([]Band, len(bands))
	copy(out, bands)
	return &TriggerBands{bands: out}, nil
}

// Match returns the index of the band containing p.
func (t *TriggerBands) Match(p model.Particle) (int, bool) {
	for i, b := range t.bands {
		if b.contains(p) {
			return i, true
		}
	}
	return -1, false
}

// Bands returns a copy of the configured bands.
func (t *TriggerBands) Bands() []Band {
	out := make([]Band, len(t.bands))
	copy(out, t.bands)
	return out
}

// PIDs returns the distinct species in configuration order.
func (t *TriggerBands) PIDs() []int {
	var ids []int
	seen := map[int]bool{}
	for _, b := range t.bands {
		if !seen[b.PID] {
			seen[b.PID] = true
			ids = append(ids, b.PID)
		}
	}
	return ids
}

// Cut returns the cut accepting particles in any band.
func (t *TriggerBands) Cut() Cut {
	return func(p model.Particle) bool {
		_, ok := t.Match(p)
		return ok
	}
}

// Trigger builds the trigger selection: species in the bands, |eta| < etaMax
// and pt inside one of that species' bands.
func Trigger(bands *TriggerBands, etaMax float64) (Selection, error) {
	if bands == nil {
		return Selection{}, fmt.Errorf("%w: nil trigger bands", ErrInvalidSelection)
	}
	if etaMax <= 0 {
		return Selection{}, fmt.Errorf("%w: trigger eta max %g must be positive", ErrInvalidSelection, etaMax)
	}
	cut := PID(bands.PIDs()...).And(AbsEtaBelow(etaMax), bands.Cut())
	return New("trigger", cut), nil
}

// Associated builds the associated selection: charged, |eta| < etaMax and
// ptMin < pt < ptMax.
func Associated(ptMin, ptMax, etaMax float64) (Selection, error) {
	if ptMin >= ptMax {
		return Selection{}, fmt.Errorf("%w: associated pt range (%g,%g) is empty", ErrInvalidSelection, ptMin, ptMax)
	}
	if etaMax <= 0 {
		return Selection{}, fmt.Errorf("%w: associated eta max %g must be positive", ErrInvalidSelection, etaMax)
	}
	cut := Charged().And(AbsEtaBelow(etaMax), PtAbove(ptMin), PtBelow(ptMax))
	return New("associated", cut), nil
}

// PIDName is the inverse of ParsePID for the named species; other codes
// are rendered as numbers.
func PIDName(pid int) string {
	switch pid {
	case model.PIDPhoton:
		return "gamma"
	case model.PIDPi0:
		return "pi0"
	default:
		return strconv.Itoa(pid)
	}
}

// ParsePID resolves a species name or numeric PDG code.
func ParsePID(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gamma", "photon":
		return model.PIDPhoton, nil
	case "pi0", "pizero":
		return model.PIDPi0, nil
	}
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParticle, s)
	}
	return id, nil
}
