// Package correlation accumulates trigger/associated Δφ correlations per
// centrality bin and normalizes them per trigger particle.
//
// A Pipeline is configured once, fed events with ProcessEvent and finalized
// once. For parallel use the per-event work is split into Classify (stateful,
// must run in stream order), Correlate (pure) and Apply (serialized).
package correlation

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/model"
	"github.com/okian/azicorr/internal/domain/observable"
	"github.com/okian/azicorr/internal/domain/selection"
	"github.com/okian/azicorr/pkg/logger"
	"github.com/okian/azicorr/pkg/metrics"
)

// Pipeline drives classification, selection, accumulation and normalization.
type Pipeline struct {
	mu        sync.RWMutex
	logger    logger.Logger
	estimator centrality.Estimator
	cfg       *compiled
	acc       *Accumulator
}

// NewPipeline creates an unconfigured pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("correlation")
	}
	return p
}

// Configure validates settings, calibrates the estimator and books fresh
// accumulators. Calling it again starts a new run.
func (p *Pipeline) Configure(ctx context.Context, s Settings) error {
	cfg, err := s.compile()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.estimator == nil {
		est, err := centrality.NewImpactParameterEstimator(cfg.warmup)
		if err != nil {
			return err
		}
		p.estimator = est
	} else if err := p.estimator.Calibrate(cfg.warmup); err != nil {
		return err
	}

	acc, err := NewAccumulator(cfg.binning, cfg.axes, cfg.bands.Bands())
	if err != nil {
		return err
	}
	p.cfg = cfg
	p.acc = acc

	p.logger.Info(ctx, "pipeline configured",
		logger.Int("centralityBins", cfg.binning.Len()),
		logger.Int("triggerBands", len(cfg.bands.Bands())),
		logger.Int("warmupEvents", cfg.warmup),
	)
	return nil
}

func (p *Pipeline) state() (*compiled, *Accumulator, centrality.Estimator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cfg == nil {
		return nil, nil, nil, ErrNotConfigured
	}
	return p.cfg, p.acc, p.estimator, nil
}

// Classify computes the event's centrality and bin. The estimator may keep
// warm-up state, so Classify must be called in stream order from a single
// goroutine.
func (p *Pipeline) Classify(ev *model.Event) (centrality.Bin, float64, Veto, error) {
	cfg, _, est, err := p.state()
	if err != nil {
		return centrality.Bin{}, 0, VetoNone, err
	}

	c := est.Centrality(ev)
	switch {
	case math.IsNaN(c) || c >= centrality.MaxPercentile:
		return centrality.Bin{}, c, VetoOutOfRange, nil
	case c < centrality.MinPercentile:
		return centrality.Bin{}, c, VetoNotCalibrated, nil
	}

	bin, ok := cfg.binning.Lookup(c)
	if !ok {
		return centrality.Bin{}, c, VetoNoBin, nil
	}
	return bin, c, VetoNone, nil
}

// Correlate selects triggers and associated particles and pairs them. It
// has no side effects.
func (p *Pipeline) Correlate(ev *model.Event, bin centrality.Bin) (Contribution, error) {
	cfg, _, _, err := p.state()
	if err != nil {
		return Contribution{}, err
	}
	return correlate(cfg.trigger, cfg.associated, cfg.bands, ev, bin), nil
}

func correlate(trig, assoc selection.Selection, bands *selection.TriggerBands, ev *model.Event, bin centrality.Bin) Contribution {
	triggers := trig.Select(ev)
	associated := assoc.Select(ev)

	c := Contribution{
		EventID:      ev.ID,
		Bin:          bin.Index,
		Triggers:     len(triggers),
		BandTriggers: make([]int, len(bands.Bands())),
	}
	for _, t := range triggers {
		band := NoBand
		if i, ok := bands.Match(t); ok {
			c.BandTriggers[i]++
			band = i
		}
		for _, a := range associated {
			if a.Pt >= t.Pt {
				continue
			}
			c.Deposits = append(c.Deposits, Deposit{
				DPhi:    DeltaPhi(t.Phi, a.Phi),
				AssocPt: a.Pt,
				ZT:      a.Pt / t.Pt,
				Band:    band,
			})
		}
	}
	return c
}

// Apply adds a contribution to the accumulator.
func (p *Pipeline) Apply(ctx context.Context, c Contribution) error {
	_, acc, _, err := p.state()
	if err != nil {
		return err
	}
	if err := acc.Apply(c); err != nil {
		return err
	}
	metrics.RecordEventAccepted()
	metrics.RecordTriggers(c.Bin, c.Triggers)
	metrics.RecordPairs(c.Bin, len(c.Deposits))
	p.logger.Debug(ctx, "event accumulated",
		logger.String("eventID", c.EventID),
		logger.Int("bin", c.Bin),
		logger.Int("triggers", c.Triggers),
		logger.Int("pairs", len(c.Deposits)),
	)
	return nil
}

// RecordVeto counts a vetoed event for diagnostics.
func (p *Pipeline) RecordVeto(ctx context.Context, ev *model.Event, v Veto) {
	_, acc, _, err := p.state()
	if err != nil || v == VetoNone {
		return
	}
	acc.RecordVeto(v)
	metrics.RecordEventVetoed(v.String())
	p.logger.Debug(ctx, "event vetoed", logger.String("eventID", ev.ID), logger.String("reason", v.String()))
}

// ProcessEvent classifies, correlates and accumulates one event. Vetoed
// events are not errors: the returned Outcome carries the reason.
func (p *Pipeline) ProcessEvent(ctx context.Context, ev *model.Event) (Outcome, error) {
	bin, c, veto, err := p.Classify(ev)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Veto: veto, Centrality: c, Bin: -1}
	if veto != VetoNone {
		p.RecordVeto(ctx, ev, veto)
		return out, nil
	}

	contrib, err := p.Correlate(ev, bin)
	if err != nil {
		return Outcome{}, err
	}
	if err := p.Apply(ctx, contrib); err != nil {
		return Outcome{}, err
	}
	out.Bin = bin.Index
	out.Triggers = contrib.Triggers
	out.Pairs = len(contrib.Deposits)
	return out, nil
}

// Finalize normalizes every bin once. A second call returns
// ErrAlreadyFinalized together with the first report.
func (p *Pipeline) Finalize(ctx context.Context) (Report, error) {
	_, acc, _, err := p.state()
	if err != nil {
		return Report{}, err
	}

	start := time.Now()
	rep, err := acc.Finalize()
	if err != nil {
		return rep, err
	}
	metrics.RecordFinalizeDuration(float64(time.Since(start).Microseconds()) / 1e3)

	invalid := rep.InvalidBins()
	metrics.UpdateInvalidBins(len(invalid))
	for _, b := range invalid {
		p.logger.Warn(ctx, "bin left unnormalized",
			logger.Int("bin", b.Bin.Index),
			logger.String("range", b.Bin.Range.String()),
			logger.Error(b.Err),
		)
	}
	p.logger.Info(ctx, "pipeline finalized",
		logger.Uint64("acceptedEvents", rep.Accepted),
		logger.Int("invalidBins", len(invalid)),
	)
	return rep, nil
}

// Stats returns live counters.
func (p *Pipeline) Stats() (Stats, error) {
	_, acc, _, err := p.state()
	if err != nil {
		return Stats{}, err
	}
	return acc.Stats(), nil
}

// Distribution returns the live distribution for key.
func (p *Pipeline) Distribution(key observable.Key) (*observable.Distribution, bool) {
	_, acc, _, err := p.state()
	if err != nil {
		return nil, false
	}
	return acc.Distribution(key)
}
