package correlation

import (
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithEstimator replaces the impact-parameter centrality estimator.
func WithEstimator(e centrality.Estimator) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.estimator = e
		}
	}
}
