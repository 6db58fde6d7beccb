// Package worker runs queued match jobs against the matcher.
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

	"github.com/okian/pairup/internal/adapters/mq/queue"
	"github.com/okian/pairup/internal/domain/matching"
	"github.com/okian/pairup/internal/domain/model"
	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/pkg/logger"
	"github.com/okian/pairup/pkg/metrics"
)

const defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()

// Matcher runs one match attempt for an entry.
type Matcher interface {
	Match(ctx context.Context, entryID string, policy scoring.Policy) (matching.Result, error)
}

// Releaser forgets an entry once its job is done so it can be queued again.
type Releaser interface {
	Unrecord(ctx context.Context, id string)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
}

// InMemoryWorker drains the job queue one job at a time.
type InMemoryWorker struct {
	queue    Queue
	matcher  Matcher
	inflight Releaser
	name     string

	processed *atomic.Int64
	matched   *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
// inflight may be nil when jobs are not deduplicated.
func NewInMemoryWorker(q Queue, m Matcher, inflight Releaser, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		matcher:   m,
		inflight:  inflight,
		name:      "worker",
		processed: &atomic.Int64{},
		matched:   &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until ctx is cancelled, Shutdown is called or the queue
// is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker after the job in progress.
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

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
		if w.inflight != nil {
			w.inflight.Unrecord(ctx, job.EntryID)
		}
		w.processed.Add(1)
	}()

	res, err := w.matcher.Match(ctx, job.EntryID, job.Policy)
	switch {
	case err == nil:
		if res.Outcome == matching.OutcomeMatched {
			w.matched.Add(1)
			w.logger.Debug(ctx, "background match",
				logger.String("entryID", job.EntryID),
				logger.String("sessionID", res.Session.ID),
			)
		}
	case errors.Is(err, matching.ErrEntryNotEligible), errors.Is(err, model.ErrNotFound):
		// The entry left pending between sweep and job; nothing to do.
		w.logger.Debug(ctx, "skipped job", logger.String("entryID", job.EntryID), logger.Error(err))
	default:
		metrics.RecordErrorByComponent("worker", "match_failed")
		w.logger.Error(ctx, "match job failed",
			logger.String("entryID", job.EntryID),
			logger.Duration("queued", start.Sub(job.EnqueuedAt)),
			logger.Error(err),
		)
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	matched   atomic.Int64

	wg     sync.WaitGroup
	logger logger.Logger
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Processed int64 `json:"processed"`
	Matched   int64 `json:"matched"`
}

// NewPool creates a new worker pool. workerCount < 1 picks a CPU-based default.
func NewPool(workerCount int, q Queue, m Matcher, inflight Releaser, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, m, inflight, wopts...)
		w.processed = &p.processed
		w.matched = &p.matched
		p.workers[i] = w
	}
	if len(p.workers) > 0 {
		p.logger = p.workers[0].logger
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Stats returns the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Processed: p.processed.Load(),
		Matched:   p.matched.Load(),
	}
}

// Shutdown closes the queue when it can be closed, then waits for every
// worker to stop or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	p.wg.Wait()
	return nil
}
