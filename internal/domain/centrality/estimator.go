package centrality

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/okian/azicorr/internal/domain/model"
)

// NotCalibrated is returned by estimators while they are still collecting
// their calibration sample.
const NotCalibrated = -1.0

// Estimator maps an event to a centrality percentile.
type Estimator interface {
	// Calibrate resets the estimator and sets the number of warm-up events.
	Calibrate(warmup int) error
	// Centrality returns a percentile in [0,100], or a value outside that
	// range (NotCalibrated) when no meaningful answer is available.
	Centrality(ev *model.Event) float64
}

// ImpactParameterEstimator derives centrality from the generator impact
// parameter. The first warm-up events build a reference sample and report
// NotCalibrated; later events get the percentage of the sample with a
// smaller impact parameter.
type ImpactParameterEstimator struct {
	mu     sync.Mutex
	warmup int
	sample []float64
	sorted bool
}

// NewImpactParameterEstimator returns an estimator calibrated with warmup events.
func NewImpactParameterEstimator(warmup int) (*ImpactParameterEstimator, error) {
	e := &ImpactParameterEstimator{}
	if err := e.Calibrate(warmup); err != nil {
		return nil, err
	}
	return e, nil
}

// Calibrate implements Estimator.
func (e *ImpactParameterEstimator) Calibrate(warmup int) error {
	if warmup < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWarmup, warmup)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warmup = warmup
	e.sample = make([]float64, 0, warmup)
	e.sorted = false
	return nil
}

// Centrality implements Estimator.
func (e *ImpactParameterEstimator) Centrality(ev *model.Event) float64 {
	if !ev.HasImpactParameter() {
		return NotCalibrated
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sample) < e.warmup {
		e.sample = append(e.sample, ev.ImpactParameter)
		return NotCalibrated
	}
	if !e.sorted {
		sort.Float64s(e.sample)
		e.sorted = true
	}

	below := sort.SearchFloat64s(e.sample, ev.ImpactParameter)
	c := MaxPercentile * float64(below) / float64(len(e.sample))
	return math.Min(c, MaxPercentile)
}

// Calibrated reports whether the warm-up sample is complete.
func (e *ImpactParameterEstimator) Calibrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.warmup > 0 && len(e.sample) >= e.warmup
}

// EstimatorFunc adapts a plain function to the Estimator interface. Its
// Calibrate is a no-op.
type EstimatorFunc func(ev *model.Event) float64

// Calibrate implements Estimator.
func (f EstimatorFunc) Calibrate(int) error { return nil }

// Centrality implements Estimator.
func (f EstimatorFunc) Centrality(ev *model.Event) float64 { return f(ev) }
