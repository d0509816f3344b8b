package service

import (
	"time"

	"github.com/okian/azicorr/internal/adapters/output"
	"github.com/okian/azicorr/internal/adapters/repository"
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of correlation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event IDs are remembered for
// de-duplication. Zero disables de-duplication.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSettings sets the analysis settings used by every run.
func WithSettings(settings correlation.Settings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

// WithEstimator replaces the default impact-parameter estimator.
func WithEstimator(e centrality.Estimator) Option {
	return func(s *Service) {
		s.estimator = e
	}
}

// WithSinks adds sinks receiving the finished distributions of each run.
// The caller keeps ownership and closes them.
func WithSinks(sinks ...output.Sink) Option {
	return func(s *Service) {
		for _, sink := range sinks {
			if sink != nil {
				s.sinks = append(s.sinks, sink)
			}
		}
	}
}

// WithResultStore sets the store holding the latest results.
func WithResultStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.results = store
		}
	}
}

// WithProgressInterval sets how often run progress is logged.
func WithProgressInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.progressInterval = d
		}
	}
}
