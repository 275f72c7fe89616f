// Package queue holds comments waiting for combined analysis.
//
// Batch requests put one job per comment on a bounded in-memory queue and
// collect the results from the job's reply channel.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultBufferSize    = 1024
)

// Job is one comment to analyze.
type Job struct {
	ID       string
	Index    int
	Text     string
	Enqueued time.Time
	// Ctx is the caller's context. Workers analyze under it and skip the job
	// once it is done. Nil means the worker's own context.
	Ctx context.Context
	// Reply receives exactly one Result. It must be buffered so a worker
	// never blocks on a caller that gave up.
	Reply chan<- Result
}

// Result is the analysis of the job at Index.
type Result struct {
	Index    int
	Analysis fusion.Analysis
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It fails with ErrFull instead of blocking.
	Enqueue(ctx context.Context, j Job) error

	// EnqueueBatch adds all jobs or none of them.
	EnqueueBatch(ctx context.Context, jobs []Job) error

	// Dequeue returns a channel that receives jobs until the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of waiting jobs.
	Len(ctx context.Context) int

	// Capacity returns the configured capacity.
	Capacity() int

	// Close stops accepting jobs; the dequeue channels drain and close.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs       chan Job
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}
	q.jobs = make(chan Job, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	// Producers hold the write lock so a capacity check and the sends that
	// follow it cannot interleave with another producer.
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.admit(ctx, 1); err != nil {
		return err
	}
	return q.push(j)
}

// EnqueueBatch adds every job or, when they do not all fit, none of them.
func (q *InMemoryQueue) EnqueueBatch(ctx context.Context, jobs []Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.admit(ctx, len(jobs)); err != nil {
		return err
	}
	for i, j := range jobs {
		if err := q.push(j); err != nil {
			return errors.Wrapf(err, "enqueue batch: job %d of %d", i, len(jobs))
		}
	}
	return nil
}

// admit checks that n more jobs fit. Callers hold q.mu.
func (q *InMemoryQueue) admit(ctx context.Context, n int) error {
	if q.closed {
		return q.reject("closed", ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return q.reject("context_cancelled", errors.Wrap(err, "enqueue"))
	}
	if len(q.jobs)+n > q.capacity {
		return q.reject("capacity_exceeded", ErrFull)
	}
	return nil
}

// push sends one admitted job. Callers hold q.mu.
func (q *InMemoryQueue) push(j Job) error {
	if j.Enqueued.IsZero() {
		j.Enqueued = time.Now()
	}
	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		return q.reject("queue_full", ErrFull)
	}
}

func (q *InMemoryQueue) reject(reason string, err error) error {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
	return err
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of waiting jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observe()
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) observe() int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
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
