package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/pairup/internal/adapters/mq/queue"
	worker "github.com/okian/pairup/internal/adapters/mq/worker"
	"github.com/okian/pairup/internal/domain/dedupe"
	"github.com/okian/pairup/internal/domain/matching"
	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

type mockMatcher struct {
	mu       sync.Mutex
	calls    map[string]scoring.Policy
	errors   map[string]error
	matchIDs map[string]bool
}

func newMockMatcher() *mockMatcher {
	return &mockMatcher{
		calls:    make(map[string]scoring.Policy),
		errors:   make(map[string]error),
		matchIDs: make(map[string]bool),
	}
}

func (m *mockMatcher) Match(_ context.Context, entryID string, policy scoring.Policy) (matching.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[entryID] = policy
	if err, ok := m.errors[entryID]; ok {
		return matching.Result{}, err
	}
	if m.matchIDs[entryID] {
		return matching.Result{Outcome: matching.OutcomeMatched, Session: model.Session{ID: "s-" + entryID}}, nil
	}
	return matching.Result{Outcome: matching.OutcomeNoMatch}, nil
}

func (m *mockMatcher) setError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[id] = err
}

func (m *mockMatcher) setMatched(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchIDs[id] = true
}

func (m *mockMatcher) called(id string) (scoring.Policy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.calls[id]
	return p, ok
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading a job queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		m := newMockMatcher()
		inflight := dedupe.NewInMemoryDeduper()
		w := worker.NewInMemoryWorker(q, m, inflight, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		enqueue := func(id string, policy scoring.Policy) {
			inflight.SeenAndRecord(ctx, id)
			convey.So(q.Enqueue(ctx, queue.Job{EntryID: id, Policy: policy}), convey.ShouldBeNil)
		}

		convey.Convey("When a job is processed", func() {
			enqueue("entry-1", scoring.PolicyPartial)

			convey.Convey("Then the matcher runs with the job policy and the entry is released", func() {
				convey.So(waitFor(func() bool { return inflight.Size() == 0 }), convey.ShouldBeTrue)
				p, ok := m.called("entry-1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p, convey.ShouldEqual, scoring.PolicyPartial)
			})
		})

		convey.Convey("When the matcher fails", func() {
			m.setError("entry-2", errors.New("store unavailable"))
			m.setError("entry-3", fmt.Errorf("%w: entry-3 is matched", matching.ErrEntryNotEligible))
			enqueue("entry-2", scoring.PolicyAny)
			enqueue("entry-3", scoring.PolicyAny)

			convey.Convey("Then the entries are still released for a later sweep", func() {
				convey.So(waitFor(func() bool { return inflight.Size() == 0 }), convey.ShouldBeTrue)
				convey.So(inflight.SeenAndRecord(ctx, "entry-2"), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker that never started", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockMatcher(), nil)

		convey.Convey("When shutdown times out", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.Convey("Then the deadline is reported", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		m := newMockMatcher()
		inflight := dedupe.NewInMemoryDeduper()
		pool := worker.NewPool(4, q, m, inflight)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many jobs are queued", func() {
			const jobs = 100
			for i := 0; i < jobs; i++ {
				id := fmt.Sprintf("entry-%d", i)
				if i%4 == 0 {
					m.setMatched(id)
				}
				inflight.SeenAndRecord(ctx, id)
				convey.So(q.Enqueue(ctx, queue.Job{EntryID: id, Policy: scoring.PolicyAny}), convey.ShouldBeNil)
			}

			convey.Convey("Then every job runs once and the counters agree", func() {
				convey.So(waitFor(func() bool { return pool.Stats().Processed == jobs }), convey.ShouldBeTrue)
				stats := pool.Stats()
				convey.So(stats.Workers, convey.ShouldEqual, 4)
				convey.So(stats.Matched, convey.ShouldEqual, jobs/4)
				convey.So(inflight.Size(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			err := pool.Shutdown(shutdownCtx)

			convey.Convey("Then the queue is closed and workers stop", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with the default worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockMatcher(), nil)
		convey.So(pool.Stats().Workers, convey.ShouldBeGreaterThan, 0)
	})
}
