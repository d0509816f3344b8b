package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/azicorr/internal/domain/model"
)

// Synthetic generator defaults.
const (
	defaultMaxImpact    = 15.0 // fm
	defaultMultiplicity = 120  // charged particles in the most central events
	pidPion             = 211
)

// Synthetic produces a reproducible stream of toy heavy-ion events. The
// impact parameter follows the geometric b·db distribution, the charged
// multiplicity falls with b, and some events carry a photon or π0 trigger
// with a back-to-back recoil hadron so correlations have structure.
// It is not a physics generator.
type Synthetic struct {
	mu        sync.Mutex
	rng       *rand.Rand
	ns        uuid.UUID
	total     int
	emitted   int
	maxImpact float64
	mult      int
}

// SyntheticOption configures a Synthetic source.
type SyntheticOption func(*Synthetic)

// WithMaxImpact sets the largest generated impact parameter in fm.
func WithMaxImpact(b float64) SyntheticOption {
	return func(s *Synthetic) {
		if b > 0 {
			s.maxImpact = b
		}
	}
}

// WithMultiplicity sets the charged multiplicity of head-on events.
func WithMultiplicity(n int) SyntheticOption {
	return func(s *Synthetic) {
		if n > 0 {
			s.mult = n
		}
	}
}

// NewSynthetic returns a source emitting n events generated from seed. The
// same seed always yields the same events and IDs.
func NewSynthetic(n int, seed uint64, opts ...SyntheticOption) (*Synthetic, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	s := &Synthetic{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		ns:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("azicorr/synthetic/%d", seed))),
		total:     n,
		maxImpact: defaultMaxImpact,
		mult:      defaultMultiplicity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next implements Source.
func (s *Synthetic) Next(ctx context.Context) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitted >= s.total {
		return model.Event{}, io.EOF
	}
	ev := s.generate(s.emitted)
	s.emitted++
	return ev, nil
}

// Close implements Source.
func (s *Synthetic) Close() error { return nil }

func (s *Synthetic) generate(number int) model.Event {
	r := s.rng
	b := s.maxImpact * math.Sqrt(r.Float64())
	overlap := 1 - b/s.maxImpact

	ev := model.Event{
		ID:              uuid.NewSHA1(s.ns, []byte(fmt.Sprintf("%d", number))).String(),
		Number:          number,
		ImpactParameter: b,
	}

	n := int(float64(s.mult) * overlap * overlap)
	for i := 0; i < n; i++ {
		ev.Particles = append(ev.Particles, s.hadron(0.2+r.ExpFloat64(), r.Float64()*2*math.Pi))
	}

	switch u := r.Float64(); {
	case u < 0.3:
		s.trigger(&ev, model.PIDPhoton, 5, 15)
	case u < 0.45:
		s.trigger(&ev, model.PIDPi0, 13, 20)
	}
	return ev
}

// trigger adds a neutral trigger and a recoil hadron on the away side.
func (s *Synthetic) trigger(ev *model.Event, pid int, ptLow, ptHigh float64) {
	r := s.rng
	pt := ptLow + r.Float64()*(ptHigh-ptLow)
	phi := r.Float64() * 2 * math.Pi
	ev.Particles = append(ev.Particles, model.Particle{
		PID: pid,
		Pt:  pt,
		Eta: s.eta(),
		Phi: phi,
	})
	recoil := pt * (0.1 + 0.7*r.Float64())
	ev.Particles = append(ev.Particles, s.hadron(recoil, phi+math.Pi+0.3*r.NormFloat64()))
}

func (s *Synthetic) hadron(pt, phi float64) model.Particle {
	charge := 1.0
	pid := pidPion
	if s.rng.IntN(2) == 0 {
		charge, pid = -1, -pidPion
	}
	return model.Particle{PID: pid, Pt: pt, Eta: s.eta(), Phi: phi, Charge: charge}
}

func (s *Synthetic) eta() float64 {
	return 3*s.rng.Float64() - 1.5
}
