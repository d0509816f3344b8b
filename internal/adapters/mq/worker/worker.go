// Package worker runs the per-event correlation step concurrently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/azicorr/internal/adapters/mq/queue"
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/internal/domain/model"
	"github.com/okian/azicorr/pkg/logger"
	"github.com/okian/azicorr/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Correlator pairs the triggers and associated particles of one event.
type Correlator interface {
	Correlate(ev *model.Event, bin centrality.Bin) (correlation.Contribution, error)
}

// Applier adds a contribution to the accumulators.
type Applier interface {
	Apply(ctx context.Context, c correlation.Contribution) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue is drained.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	correlator Correlator
	applier    Applier
	name       string
	onError    func(error)
	processed  atomic.Uint64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, c Correlator, a Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		correlator: c,
		applier:    a,
		name:       "worker",
		onError:    func(error) {},
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.onError(err)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns the number of jobs handled successfully.
func (w *InMemoryWorker) Processed() uint64 { return w.processed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1e3)
	}()

	c, err := w.correlator.Correlate(&j.Event, j.Bin)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "correlation failed",
			logger.String("eventID", j.Event.ID),
			logger.Error(err),
		)
		return fmt.Errorf("correlate event %s: %w", j.Event.ID, err)
	}

	if err := w.applier.Apply(ctx, c); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "accumulation failed",
			logger.String("eventID", j.Event.ID),
			logger.Int("bin", j.Bin.Index),
			logger.Error(err),
		)
		return fmt.Errorf("apply event %s: %w", j.Event.ID, err)
	}

	w.processed.Add(1)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	mu   sync.Mutex
	errs []error

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, c Correlator, a Applier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, c, a,
			WithName("worker-"+strconv.Itoa(i)),
			WithErrorHandler(pool.recordError),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

func (p *Pool) recordError(err error) {
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has exited, which happens once the queue
// is closed and drained or ctx is canceled. It returns the per-job errors.
func (p *Pool) Wait() error {
	for _, w := range p.workers {
		<-w.done
	}
	return p.Err()
}

// Err returns the per-job errors recorded so far.
func (p *Pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

// Processed returns the number of jobs handled successfully by all workers.
func (p *Pool) Processed() uint64 {
	var n uint64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Shutdown closes the queue, stops every worker and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
