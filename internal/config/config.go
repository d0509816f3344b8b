// Package config defines the run configuration and its loading layers.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/internal/domain/dedupe"
	"github.com/okian/azicorr/internal/domain/selection"
	"github.com/okian/azicorr/pkg/logger"
)

// TriggerBand is a trigger pt window for one particle species. Particle is
// a name (gamma, pi0) or a PDG code.
type TriggerBand struct {
	Particle string  `koanf:"particle"`
	PtLow    float64 `koanf:"pt_low"`
	PtHigh   float64 `koanf:"pt_high"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address, e.g. ":9080". Empty disables the server.
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of correlation workers; 0 means one per CPU.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the queue between the dispatcher and the workers.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize is the number of event IDs remembered; 0 disables it.
	DedupeSize int `koanf:"dedupe_size"`

	// Inputs lists HepMC files read in order.
	Inputs []string `koanf:"inputs"`

	// SyntheticEvents generates toy events instead of reading Inputs.
	SyntheticEvents int    `koanf:"synthetic_events"`
	SyntheticSeed   uint64 `koanf:"synthetic_seed"`

	// Output is the YODA file written after the run. Empty skips it.
	Output string `koanf:"output"`

	CentralityBins   []centrality.Range `koanf:"centrality_bins"`
	TriggerBands     []TriggerBand      `koanf:"trigger_bands"`
	TriggerEtaMax    float64            `koanf:"trigger_eta_max"`
	AssocPtMin       float64            `koanf:"assoc_pt_min"`
	AssocPtMax       float64            `koanf:"assoc_pt_max"`
	AssocEtaMax      float64            `koanf:"assoc_eta_max"`
	WarmupEventCount int                `koanf:"warmup_event_count"`

	DPhiBins int `koanf:"dphi_bins"`
	IAABins  int `koanf:"iaa_bins"`
	IAAzBins int `koanf:"iaaz_bins"`
}

// New creates a Config with the default analysis.
func New() *Config {
	d := correlation.DefaultSettings()

	bands := make([]TriggerBand, len(d.TriggerBands))
	for i, b := range d.TriggerBands {
		bands[i] = TriggerBand{Particle: selection.PIDName(b.PID), PtLow: b.PtLow, PtHigh: b.PtHigh}
	}

	return &Config{
		LogLevel:         "info",
		WorkerCount:      runtime.NumCPU(),
		QueueSize:        1024,
		DedupeSize:       dedupe.DefaultWindow,
		SyntheticSeed:    1,
		CentralityBins:   d.CentralityBins,
		TriggerBands:     bands,
		TriggerEtaMax:    d.TriggerEtaMax,
		AssocPtMin:       d.AssocPtMin,
		AssocPtMax:       d.AssocPtMax,
		AssocEtaMax:      d.AssocEtaMax,
		WarmupEventCount: d.WarmupEventCount,
		DPhiBins:         d.DPhiBins,
		IAABins:          d.IAABins,
		IAAzBins:         d.IAAzBins,
	}
}

// Settings converts the analysis part of the configuration.
func (c *Config) Settings() (correlation.Settings, error) {
	bands := make([]selection.Band, len(c.TriggerBands))
	for i, b := range c.TriggerBands {
		pid, err := selection.ParsePID(b.Particle)
		if err != nil {
			return correlation.Settings{}, fmt.Errorf("%w: trigger_bands[%d]: %w", ErrInvalidConfig, i, err)
		}
		bands[i] = selection.Band{PID: pid, PtLow: b.PtLow, PtHigh: b.PtHigh}
	}

	s := correlation.Settings{
		CentralityBins:   append([]centrality.Range(nil), c.CentralityBins...),
		TriggerBands:     bands,
		TriggerEtaMax:    c.TriggerEtaMax,
		AssocPtMin:       c.AssocPtMin,
		AssocPtMax:       c.AssocPtMax,
		AssocEtaMax:      c.AssocEtaMax,
		WarmupEventCount: c.WarmupEventCount,
		DPhiBins:         c.DPhiBins,
		IAABins:          c.IAABins,
		IAAzBins:         c.IAAzBins,
	}
	if err := s.Validate(); err != nil {
		return correlation.Settings{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return s, nil
}

// Validate checks the whole configuration, including that exactly one
// event source is selected, without reading any event.
func (c *Config) Validate() error {
	switch {
	case c.WorkerCount < 0:
		return fmt.Errorf("%w: worker_count must not be negative", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.SyntheticEvents < 0:
		return fmt.Errorf("%w: synthetic_events must not be negative", ErrInvalidConfig)
	case len(c.Inputs) == 0 && c.SyntheticEvents == 0:
		return fmt.Errorf("%w: no event source: set inputs or synthetic_events", ErrInvalidConfig)
	case len(c.Inputs) > 0 && c.SyntheticEvents > 0:
		return fmt.Errorf("%w: inputs and synthetic_events are exclusive", ErrInvalidConfig)
	}
	for i, in := range c.Inputs {
		if strings.TrimSpace(in) == "" {
			return fmt.Errorf("%w: inputs[%d] is empty", ErrInvalidConfig, i)
		}
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	_, err := c.Settings()
	return err
}
