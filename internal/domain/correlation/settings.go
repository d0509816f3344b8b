package correlation

import (
	"fmt"

	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/model"
	"github.com/okian/azicorr/internal/domain/observable"
	"github.com/okian/azicorr/internal/domain/selection"
)

// Default analysis settings.
const (
	defaultTriggerEtaMax = 1.0
	defaultAssocPtMin    = 1.2
	defaultAssocPtMax    = 20.0
	defaultAssocEtaMax   = 1.0
	defaultWarmup        = 50
	defaultDPhiBins      = 36
	defaultIAABins       = 20
	defaultIAAzBins      = 20
)

// Settings is the run-level analysis configuration.
type Settings struct {
	CentralityBins   []centrality.Range
	TriggerBands     []selection.Band
	TriggerEtaMax    float64
	AssocPtMin       float64
	AssocPtMax       float64
	AssocEtaMax      float64
	WarmupEventCount int

	DPhiBins int
	IAABins  int
	IAAzBins int
}

// DefaultSettings returns the 0-20/20-40/40-60 % analysis with photon and
// neutral-pion triggers.
func DefaultSettings() Settings {
	return Settings{
		CentralityBins: []centrality.Range{{Low: 0, High: 20}, {Low: 20, High: 40}, {Low: 40, High: 60}},
		TriggerBands: []selection.Band{
			{PID: model.PIDPhoton, PtLow: 5, PtHigh: 7},
			{PID: model.PIDPhoton, PtLow: 7, PtHigh: 9},
			{PID: model.PIDPhoton, PtLow: 9, PtHigh: 12},
			{PID: model.PIDPhoton, PtLow: 12, PtHigh: 15},
			{PID: model.PIDPi0, PtLow: 13, PtHigh: 20},
		},
		TriggerEtaMax:    defaultTriggerEtaMax,
		AssocPtMin:       defaultAssocPtMin,
		AssocPtMax:       defaultAssocPtMax,
		AssocEtaMax:      defaultAssocEtaMax,
		WarmupEventCount: defaultWarmup,
		DPhiBins:         defaultDPhiBins,
		IAABins:          defaultIAABins,
		IAAzBins:         defaultIAAzBins,
	}
}

// Axes derives the observable binning from the settings.
func (s Settings) Axes() Axes {
	return Axes{
		DPhi: observable.Axis{Bins: s.DPhiBins, Min: 0, Max: TwoPi},
		IAA:  observable.Axis{Bins: s.IAABins, Min: s.AssocPtMin, Max: s.AssocPtMax},
		IAAz: observable.Axis{Bins: s.IAAzBins, Min: 0, Max: 1},
	}
}

// compiled is the validated form of Settings.
type compiled struct {
	binning    *centrality.Binning
	bands      *selection.TriggerBands
	trigger    selection.Selection
	associated selection.Selection
	axes       Axes
	warmup     int
}

func (s Settings) compile() (*compiled, error) {
	binning, err := centrality.NewBinning(s.CentralityBins)
	if err != nil {
		return nil, err
	}
	bands, err := selection.NewTriggerBands(s.TriggerBands)
	if err != nil {
		return nil, err
	}
	trig, err := selection.Trigger(bands, s.TriggerEtaMax)
	if err != nil {
		return nil, err
	}
	assoc, err := selection.Associated(s.AssocPtMin, s.AssocPtMax, s.AssocEtaMax)
	if err != nil {
		return nil, err
	}
	if s.WarmupEventCount < 1 {
		return nil, fmt.Errorf("%w: %d", centrality.ErrInvalidWarmup, s.WarmupEventCount)
	}
	axes := s.Axes()
	for _, ax := range []observable.Axis{axes.DPhi, axes.IAA, axes.IAAz} {
		if err := ax.Validate(); err != nil {
			return nil, err
		}
	}
	return &compiled{
		binning:    binning,
		bands:      bands,
		trigger:    trig,
		associated: assoc,
		axes:       axes,
		warmup:     s.WarmupEventCount,
	}, nil
}

// Validate checks the settings without building a pipeline.
func (s Settings) Validate() error {
	_, err := s.compile()
	return err
}
