// Package worker runs combined analyses for jobs taken off the queue.
package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/internal/adapters/mq/queue"
	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/pkg/logger"
	"github.com/okian/sentimoji/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// ErrPanic marks an analysis that panicked inside a worker.
var ErrPanic = errors.New("worker panic")

// Analyzer runs the combined analysis of one comment.
type Analyzer interface {
	AnalyzeCombined(ctx context.Context, id, text string) fusion.Analysis
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, id, text string) fusion.Analysis

// AnalyzeCombined calls f.
func (f AnalyzerFunc) AnalyzeCombined(ctx context.Context, id, text string) fusion.Analysis {
	return f(ctx, id, text)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	name     string
	active   *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, a Analyzer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: a,
		name:     "worker",
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
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
			w.process(ctx, j)
		}
	}
}

// Shutdown stops the worker after the job in hand.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return errors.Wrap(ctx.Err(), "worker shutdown timed out")
	}
}

// process analyzes one job and always sends exactly one reply.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	// The caller's context carries the request id and its deadline.
	if j.Ctx != nil {
		ctx = j.Ctx
	}

	var a fusion.Analysis
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("worker", "cancelled")
		w.logger.Debug(ctx, "skipping job of a finished request", logger.String("id", j.ID))
		a = fusion.Failed(j.ID, errors.Wrap(err, "job cancelled before analysis"))
	} else {
		a = w.analyze(ctx, j)
	}

	if j.Reply == nil {
		return
	}
	select {
	case j.Reply <- queue.Result{Index: j.Index, Analysis: a}:
	default:
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "reply channel full, dropping result", logger.String("id", j.ID))
	}
}

func (w *InMemoryWorker) analyze(ctx context.Context, j queue.Job) (a fusion.Analysis) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Mark(errors.Newf("analyze %s: %v", j.ID, r), ErrPanic)
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "analysis panicked", logger.String("id", j.ID), logger.Error(err))
			a = fusion.Failed(j.ID, err)
		}
	}()
	return w.analyzer.AnalyzeCombined(ctx, j.ID, j.Text)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64

	stopOnce sync.Once
	logger   logger.Logger
}

// NewPool creates a new worker pool. A count below 1 means twice the CPU count.
func NewPool(workerCount int, q Queue, a Analyzer, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("worker-pool")

	for i := range p.workers {
		w := NewInMemoryWorker(q, a,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
		w.active = &p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns how many workers are analyzing right now.
func (p *Pool) Active() int64 { return p.active.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for the workers to finish the jobs in hand.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()

		for i, w := range p.workers {
			if werr := w.Shutdown(shutdownCtx); werr != nil {
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = werr
			}
		}
	})
	return err
}
