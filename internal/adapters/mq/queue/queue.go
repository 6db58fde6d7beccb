// Package queue holds match jobs produced by the background sweep until a
// worker picks them up.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pairup/internal/domain/scoring"
	"github.com/okian/pairup/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job asks a worker to run one match attempt for a pending entry.
type Job struct {
	EntryID    string
	Policy     scoring.Policy
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job without blocking. It fails with ErrFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns the channel workers read from. It is closed by Close.
	Dequeue() <-chan Job

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateJobQueueCapacity(q.capacity)
	metrics.UpdateJobQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	// Holding the read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordJobRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordJobRejected("context_cancelled")
		return fmt.Errorf("enqueue %s: %w", j.EntryID, err)
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}

	select {
	case q.jobs <- j:
		metrics.RecordJobEnqueued()
		metrics.UpdateJobQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordJobRejected("full")
		return ErrFull
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len() int {
	n := len(q.jobs)
	metrics.UpdateJobQueueSize(n)
	return n
}

// Close stops accepting jobs. Jobs already queued remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
