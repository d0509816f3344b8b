// Package service drives an analysis run: it reads events from a source,
// classifies them in stream order, fans the pairing work out to a worker
// pool and hands the finalized distributions to the sinks.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/azicorr/internal/adapters/mq/queue"
	workerpool "github.com/okian/azicorr/internal/adapters/mq/worker"
	"github.com/okian/azicorr/internal/adapters/output"
	"github.com/okian/azicorr/internal/adapters/repository"
	"github.com/okian/azicorr/internal/adapters/source"
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/internal/domain/dedupe"
	"github.com/okian/azicorr/pkg/logger"
	"github.com/okian/azicorr/pkg/metrics"
	"golang.org/x/time/rate"
)

// Default service configuration constants.
const (
	defaultQueueSize        = 1024
	defaultProgressInterval = 5 * time.Second
)

// Service runs analyses. One run may be in progress at a time; GetStats and
// the result store can be read concurrently while it runs.
type Service struct {
	mu sync.RWMutex

	// Configuration
	settings         correlation.Settings
	estimator        centrality.Estimator
	workerCount      int
	queueSize        int
	dedupeSize       int
	progressInterval time.Duration
	sinks            []output.Sink
	results          repository.Store

	// Current or last run
	running   bool
	runID     string
	startedAt time.Time
	elapsed   time.Duration
	pipeline  *correlation.Pipeline
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	report    *correlation.Report
	read      atomic.Uint64
	decodeErr atomic.Uint64

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		settings:         correlation.DefaultSettings(),
		workerCount:      runtime.NumCPU(),
		queueSize:        defaultQueueSize,
		dedupeSize:       dedupe.DefaultWindow,
		progressInterval: defaultProgressInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.results == nil {
		s.results = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Results returns the store holding the latest run's distributions.
func (s *Service) Results() repository.Store { return s.results }

// Run processes every event of src and finalizes the accumulators. The
// caller owns src and closes it. A cancelled context or an unusable
// source stops the run before normalization.
func (s *Service) Run(ctx context.Context, src source.Source) (correlation.Report, error) {
	if src == nil {
		return correlation.Report{}, ErrNoSource
	}

	runID := uuid.NewString()
	log := s.logger.With(logger.String("run", runID))

	pipeline := correlation.NewPipeline(
		correlation.WithLogger(log),
		correlation.WithEstimator(s.estimator),
	)
	if err := pipeline.Configure(ctx, s.settings); err != nil {
		return correlation.Report{}, fmt.Errorf("configure pipeline: %w", err)
	}
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	pool := workerpool.NewPool(s.workerCount, q, pipeline, pipeline)

	if err := s.begin(runID, pipeline, q, pool); err != nil {
		return correlation.Report{}, err
	}
	defer s.end()

	s.results.Reset(ctx)
	log.Info(ctx, "run started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	pool.Start(ctx)

	dispatchErr := s.dispatch(ctx, log, src, pipeline, q)
	var workErr error
	if dispatchErr != nil || ctx.Err() != nil {
		// the run will not be finalized, so queued jobs are dropped
		if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	} else {
		if err := q.Close(); err != nil {
			log.Error(ctx, "error closing queue", logger.Error(err))
		}
		workErr = pool.Wait()
	}

	if dispatchErr != nil {
		log.Error(ctx, "run aborted", logger.Error(dispatchErr))
		return correlation.Report{}, dispatchErr
	}
	if err := ctx.Err(); err != nil {
		return correlation.Report{}, err
	}
	if workErr != nil {
		log.Error(ctx, "run aborted", logger.Error(workErr))
		return correlation.Report{}, fmt.Errorf("%w: %w", ErrWorkers, workErr)
	}

	rep, err := pipeline.Finalize(ctx)
	if err != nil {
		return correlation.Report{}, fmt.Errorf("finalize: %w", err)
	}
	s.setReport(rep)

	sinks := append([]output.Sink{s.results}, s.sinks...)
	if err := output.WriteAll(ctx, output.NewMulti(sinks...), rep); err != nil {
		return rep, fmt.Errorf("write results: %w", err)
	}

	log.Info(ctx, "run finished",
		logger.Uint64("eventsRead", s.read.Load()),
		logger.Uint64("accepted", rep.Accepted),
		logger.Uint64("sourceErrors", s.decodeErr.Load()),
		logger.Int("results", len(rep.Results)),
		logger.Int("invalidBins", len(rep.InvalidBins())),
	)
	return rep, nil
}

// dispatch reads, de-duplicates and classifies events in stream order and
// queues the accepted ones for the workers.
func (s *Service) dispatch(ctx context.Context, log logger.Logger, src source.Source, p *correlation.Pipeline, q eventqueue.Queue) error {
	var dedup dedupe.Deduper
	if s.dedupeSize > 0 {
		dedup = dedupe.NewInMemoryDeduper(dedupe.WithWindow(s.dedupeSize))
	}
	progress := rate.Sometimes{Interval: s.progressInterval}

	var seq uint64
	for {
		ev, err := src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, source.ErrDecode):
			s.decodeErr.Add(1)
			metrics.RecordSourceError()
			log.Warn(ctx, "skipping undecodable event", logger.Error(err))
			continue
		case err != nil:
			return fmt.Errorf("read event: %w", err)
		}

		n := s.read.Add(1)
		metrics.RecordEventRead()

		if dedup != nil && dedup.SeenAndRecord(ctx, ev.ID) {
			p.RecordVeto(ctx, &ev, correlation.VetoDuplicate)
			continue
		}

		bin, _, veto, err := p.Classify(&ev)
		if err != nil {
			return fmt.Errorf("classify event %s: %w", ev.ID, err)
		}
		if veto != correlation.VetoNone {
			p.RecordVeto(ctx, &ev, veto)
			continue
		}

		seq++
		if err := q.Enqueue(ctx, eventqueue.Job{Seq: seq, Event: ev, Bin: bin}); err != nil {
			return fmt.Errorf("queue event %s: %w", ev.ID, err)
		}

		progress.Do(func() {
			log.Info(ctx, "run progress",
				logger.Uint64("eventsRead", n),
				logger.Uint64("queued", seq),
				logger.Int("queueLength", q.Len(ctx)),
			)
		})
	}
}

func (s *Service) begin(runID string, p *correlation.Pipeline, q *eventqueue.InMemoryQueue, pool *workerpool.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	s.running = true
	s.runID = runID
	s.startedAt = time.Now()
	s.elapsed = 0
	s.pipeline = p
	s.queue = q
	s.pool = pool
	s.report = nil
	s.read.Store(0)
	s.decodeErr.Store(0)
	return nil
}

func (s *Service) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.elapsed = time.Since(s.startedAt)
	metrics.UpdateRunDuration(s.elapsed.Seconds())
}

func (s *Service) setReport(rep correlation.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = &rep
}

// GetStats returns run statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"running":     s.running,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"results":     s.results.Count(ctx),
	}
	if s.runID == "" {
		return stats
	}

	stats["runID"] = s.runID
	stats["startedAt"] = s.startedAt.UTC().Format(time.RFC3339)
	stats["eventsRead"] = s.read.Load()
	stats["sourceErrors"] = s.decodeErr.Load()
	stats["processed"] = s.pool.Processed()
	stats["queueCapacity"] = s.queue.Capacity()
	if s.running {
		stats["elapsedSeconds"] = time.Since(s.startedAt).Seconds()
		stats["queueLength"] = s.queue.Len(ctx)
	} else {
		stats["elapsedSeconds"] = s.elapsed.Seconds()
	}
	if ps, err := s.pipeline.Stats(); err == nil {
		stats["accepted"] = ps.Accepted
		stats["vetoes"] = ps.Vetoes
		stats["bins"] = ps.Bins
		stats["finalized"] = ps.Finalized
	}
	if s.report != nil {
		stats["invalidBins"] = len(s.report.InvalidBins())
	}
	return stats
}
