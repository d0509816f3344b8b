package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/azicorr/internal/adapters/mq/queue"
	worker "github.com/okian/azicorr/internal/adapters/mq/worker"
	"github.com/okian/azicorr/internal/domain/centrality"
	"github.com/okian/azicorr/internal/domain/correlation"
	model "github.com/okian/azicorr/internal/domain/model"
	logging "github.com/okian/azicorr/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logging.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockCorrelator struct {
	mu     sync.Mutex
	errors map[string]error
}

func newMockCorrelator() *mockCorrelator {
	return &mockCorrelator{errors: make(map[string]error)}
}

func (mc *mockCorrelator) Correlate(ev *model.Event, bin centrality.Bin) (correlation.Contribution, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if err, ok := mc.errors[ev.ID]; ok {
		return correlation.Contribution{}, err
	}
	return correlation.Contribution{
		EventID:  ev.ID,
		Bin:      bin.Index,
		Triggers: 1,
		Deposits: make([]correlation.Deposit, len(ev.Particles)),
	}, nil
}

func (mc *mockCorrelator) setError(id string, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errors[id] = err
}

type mockApplier struct {
	mu      sync.Mutex
	applied map[string]correlation.Contribution
	err     error
}

func newMockApplier() *mockApplier {
	return &mockApplier{applied: make(map[string]correlation.Contribution)}
}

func (ma *mockApplier) Apply(_ context.Context, c correlation.Contribution) error {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if ma.err != nil {
		return ma.err
	}
	ma.applied[c.EventID] = c
	return nil
}

func (ma *mockApplier) count() int {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return len(ma.applied)
}

func (ma *mockApplier) get(id string) (correlation.Contribution, bool) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	c, ok := ma.applied[id]
	return c, ok
}

func job(id string, bin int, particles int) queue.Job {
	return queue.Job{
		Event: model.Event{ID: id, Particles: make([]model.Particle, particles)},
		Bin:   centrality.Bin{Index: bin},
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		correlator := newMockCorrelator()
		applier := newMockApplier()

		var (
			mu   sync.Mutex
			errs []error
		)
		w := worker.NewInMemoryWorker(q, correlator, applier,
			worker.WithName("test-worker"),
			worker.WithErrorHandler(func(err error) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}),
		)

		convey.Convey("When jobs are processed and the queue is closed", func() {
			convey.So(q.Enqueue(ctx, job("e1", 0, 3)), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, job("e2", 2, 1)), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)
			w.Run(ctx)

			convey.Convey("Then every contribution reaches the applier", func() {
				convey.So(applier.count(), convey.ShouldEqual, 2)
				c, ok := applier.get("e1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(len(c.Deposits), convey.ShouldEqual, 3)
				c, _ = applier.get("e2")
				convey.So(c.Bin, convey.ShouldEqual, 2)
				convey.So(w.Processed(), convey.ShouldEqual, 2)
				convey.So(errs, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When correlation fails for one event", func() {
			correlator.setError("bad", errors.New("boom"))
			convey.So(q.Enqueue(ctx, job("bad", 0, 1)), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, job("good", 0, 1)), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)
			w.Run(ctx)

			convey.Convey("Then the error is reported and the other event still applied", func() {
				convey.So(len(errs), convey.ShouldEqual, 1)
				convey.So(errs[0].Error(), convey.ShouldContainSubstring, "bad")
				_, ok := applier.get("bad")
				convey.So(ok, convey.ShouldBeFalse)
				_, ok = applier.get("good")
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When accumulation fails", func() {
			applier.err = correlation.ErrFinalized
			convey.So(q.Enqueue(ctx, job("late", 0, 1)), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)
			w.Run(ctx)

			convey.Convey("Then the wrapped error is reported", func() {
				convey.So(len(errs), convey.ShouldEqual, 1)
				convey.So(errors.Is(errs[0], correlation.ErrFinalized), convey.ShouldBeTrue)
				convey.So(w.Processed(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down an idle worker", func() {
			go w.Run(ctx)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.Convey("Then it stops gracefully", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				w.Run(cctx)
				close(done)
			}()
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Error("worker did not stop after cancellation")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		applier := newMockApplier()

		convey.Convey("When created with a non-positive count", func() {
			p := worker.NewPool(0, q, newMockCorrelator(), applier)

			convey.Convey("Then it sizes itself to the machine", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When many jobs flow through four workers", func() {
			p := worker.NewPool(4, q, newMockCorrelator(), applier)
			p.Start(ctx)

			const n = 200
			for i := 0; i < n; i++ {
				convey.So(q.Enqueue(ctx, job(fmt.Sprintf("e%d", i), i%3, 1)), convey.ShouldBeNil)
			}
			convey.So(q.Close(), convey.ShouldBeNil)
			err := p.Wait()

			convey.Convey("Then all of them are applied exactly once", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(applier.count(), convey.ShouldEqual, n)
				convey.So(p.Processed(), convey.ShouldEqual, n)
			})
		})

		convey.Convey("When jobs fail", func() {
			applier.err = errors.New("store unavailable")
			p := worker.NewPool(2, q, newMockCorrelator(), applier)
			p.Start(ctx)
			convey.So(q.Enqueue(ctx, job("x", 0, 1)), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, job("y", 0, 1)), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then Wait returns the joined errors", func() {
				err := p.Wait()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "store unavailable")
			})
		})

		convey.Convey("When shutting down", func() {
			p := worker.NewPool(2, q, newMockCorrelator(), applier)
			p.Start(ctx)

			convey.Convey("Then the queue is closed and workers stop", func() {
				convey.So(p.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
