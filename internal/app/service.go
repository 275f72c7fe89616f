// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/okian/sentimoji/internal/adapters/emojidata"
	jobqueue "github.com/okian/sentimoji/internal/adapters/mq/queue"
	workerpool "github.com/okian/sentimoji/internal/adapters/mq/worker"
	"github.com/okian/sentimoji/internal/adapters/repository"
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/internal/domain/sentiment"
	"github.com/okian/sentimoji/pkg/logger"
	"github.com/okian/sentimoji/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize    = 1024
	defaultMaxBatchSize = 100
	stopTimeout         = 30 * time.Second
	nanosPerMilli       = 1e6
)

// Analysis kinds used as metric labels.
const (
	kindText     = "text"
	kindEmoji    = "emoji"
	kindCombined = "combined"
	kindBatch    = "batch"
)

// Service implements the API dependencies for the analysis service.
type Service struct {
	mu sync.RWMutex

	// Collaborators, injectable through options
	provider  sentiment.Provider
	cache     sentiment.Cache
	source    emoji.Source
	catalog   *emoji.Catalog
	extractor emoji.Extractor
	board     repository.Store

	// Built on start
	cached   *sentiment.CachedProvider
	analyzer *emoji.Analyzer
	queue    jobqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	maxBatchSize int

	// State
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		provider:     sentiment.Static(sentiment.Failed()),
		source:       emojidata.NewGomojiSource(),
		queueSize:    defaultQueueSize,
		maxBatchSize: defaultMaxBatchSize,
		stopCh:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the catalog and starts the batch workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting sentiment service...")

	if s.catalog == nil {
		began := time.Now()
		s.catalog = emoji.BuildCatalog(ctx, s.source,
			emoji.WithBuildLogger(s.logger.Named("catalog")),
			emoji.WithSkipHook(func(emoji.Metadata, error) { metrics.RecordCatalogSkipped() }),
		)
		metrics.RecordCatalogBuildDuration(float64(time.Since(began).Nanoseconds()) / nanosPerMilli)
	}
	metrics.UpdateCatalogSize(s.catalog.Len())

	if s.extractor == nil {
		s.extractor = emojidata.NewGraphemeExtractor(
			emojidata.AnyOf(emojidata.GomojiMembership, emojidata.CatalogMembership(s.catalog)),
		)
	}
	s.analyzer = emoji.NewAnalyzer(s.catalog, s.extractor,
		emoji.WithAnalyzerLogger(s.logger.Named("emoji")))

	s.cached = sentiment.NewCachedProvider(s.provider, s.cache,
		sentiment.WithCacheObserver(func(hit bool) {
			if hit {
				metrics.RecordCacheHit()
				return
			}
			metrics.RecordCacheMiss()
		}),
	)

	if s.board == nil {
		s.board = repository.NewBoard()
	}

	s.queue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue,
		workerpool.AnalyzerFunc(s.analyzeCombined),
		workerpool.WithPoolLogger(s.logger),
	)
	s.pool.Start(ctx)

	s.stopCh = make(chan struct{})
	s.started = true
	s.logger.Info(ctx, "sentiment service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("catalogSize", s.catalog.Len()),
	)

	return nil
}

// Stop gracefully shuts down the service. Batches still waiting are
// answered with failed analyses.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	pool, cache := s.pool, s.cache
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping sentiment service...")

	// Workers take the read lock, so the pool is drained without holding it.
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
	}

	if closer, ok := cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "failed to close verdict cache", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "sentiment service stopped")
}

func (s *Service) running() (*sentiment.CachedProvider, *emoji.Analyzer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached, s.analyzer, s.started
}

// AnalyzeText classifies text with the sentiment provider.
func (s *Service) AnalyzeText(ctx context.Context, text string) sentiment.Verdict {
	provider, _, ok := s.running()
	if !ok {
		return sentiment.Failed()
	}

	began := time.Now()
	v := provider.AnalyzeSentiment(ctx, text)
	observe(kindText, began)
	metrics.RecordTextVerdict(string(v.Sentiment))
	return v
}

// AnalyzeEmoji counts and buckets the emoji in text and adds them to the board.
func (s *Service) AnalyzeEmoji(ctx context.Context, text string) emoji.Summary {
	_, analyzer, ok := s.running()
	if !ok {
		return emoji.NewSummary()
	}

	began := time.Now()
	summary := analyzer.Analyze(ctx, text)
	observe(kindEmoji, began)
	s.record(ctx, summary)
	return summary
}

// AnalyzeCombined runs text and emoji analysis on one comment and fuses them.
func (s *Service) AnalyzeCombined(ctx context.Context, text string) fusion.Analysis {
	return s.analyzeCombined(ctx, uuid.NewString(), text)
}

func (s *Service) analyzeCombined(ctx context.Context, id, text string) (a fusion.Analysis) {
	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := errors.Mark(errors.Newf("combined analysis of %s: %v", id, r), ErrAnalysisPanic)
			s.logger.Error(ctx, "combined analysis failed", logger.String("id", id), logger.Error(err))
			metrics.RecordAnalysisFailure()
			a = fusion.Failed(id, err)
		}
	}()

	provider, analyzer, ok := s.running()
	if !ok {
		metrics.RecordAnalysisFailure()
		return fusion.Failed(id, ErrNotStarted)
	}

	summary := analyzer.Analyze(ctx, text)

	verdict := sentiment.Verdict{Sentiment: sentiment.Neutral, Score: sentiment.NeutralScore}
	if plain := analyzer.Strip(text); plain != "" {
		verdict = provider.AnalyzeSentiment(ctx, plain)
	}
	metrics.RecordTextVerdict(string(verdict.Sentiment))

	a = fusion.Combine(id, verdict, summary)
	observe(kindCombined, began)
	metrics.RecordFusedVerdict(string(a.CombinedSentiment))
	if a.Degraded {
		metrics.RecordDegraded()
	}
	s.record(ctx, summary)

	s.logger.Debug(ctx, "combined analysis",
		logger.String("id", id),
		logger.String("text", string(verdict.Sentiment)),
		logger.Int("emojis", summary.Total()),
		logger.String("combined", string(a.CombinedSentiment)),
		logger.Bool("degraded", a.Degraded),
	)
	return a
}

// AnalyzeBatch runs combined analysis on every comment through the worker
// pool and returns the results in input order. Comments without an id get
// a generated one.
func (s *Service) AnalyzeBatch(ctx context.Context, comments []fusion.Comment) ([]fusion.Analysis, error) {
	const op = "service.AnalyzeBatch"

	s.mu.RLock()
	q, stopCh, started := s.queue, s.stopCh, s.started
	s.mu.RUnlock()

	if !started {
		return nil, errors.Wrap(ErrNotStarted, op)
	}
	if len(comments) == 0 {
		return nil, errors.Wrap(ErrEmptyBatch, op)
	}
	if len(comments) > s.maxBatchSize {
		return nil, errors.Wrapf(ErrBatchTooLarge, "%s: %d comments, limit %d", op, len(comments), s.maxBatchSize)
	}

	began := time.Now()

	replies := make(chan jobqueue.Result, len(comments))
	results := make([]fusion.Analysis, len(comments))
	done := make([]bool, len(comments))
	jobs := make([]jobqueue.Job, len(comments))

	for i, c := range comments {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		results[i].ID = id
		jobs[i] = jobqueue.Job{ID: id, Index: i, Text: c.Text, Enqueued: began, Ctx: ctx, Reply: replies}
	}

	if err := q.EnqueueBatch(ctx, jobs); err != nil {
		s.logger.Warn(ctx, "batch rejected",
			logger.Int("size", len(comments)),
			logger.Int("free", q.Capacity()-q.Len(ctx)),
			logger.Error(err))
		return nil, errors.Wrapf(err, "%s: %d comments", op, len(comments))
	}
	metrics.RecordBatchSize(len(comments))

	for pending := len(comments); pending > 0; pending-- {
		select {
		case r := <-replies:
			results[r.Index] = r.Analysis
			done[r.Index] = true
		case <-ctx.Done():
			return fill(results, done, ctx.Err()), nil
		case <-stopCh:
			return fill(results, done, ErrStopped), nil
		}
	}

	observe(kindBatch, began)
	return results, nil
}

// fill replaces every unanswered result with a failed analysis.
func fill(results []fusion.Analysis, done []bool, cause error) []fusion.Analysis {
	for i := range results {
		if !done[i] {
			results[i] = fusion.Failed(results[i].ID, cause)
		}
	}
	return results
}

// TopEmoji returns the n most used emoji.
func (s *Service) TopEmoji(ctx context.Context, n int) ([]repository.Entry, error) {
	board, err := s.usage()
	if err != nil {
		return nil, err
	}
	return board.TopN(ctx, n)
}

// EmojiRank returns the board entry for e.
func (s *Service) EmojiRank(ctx context.Context, e string) (repository.Entry, error) {
	board, err := s.usage()
	if err != nil {
		return repository.Entry{}, err
	}
	return board.Rank(ctx, e)
}

func (s *Service) usage() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.board == nil {
		return nil, ErrNotStarted
	}
	return s.board, nil
}

func (s *Service) record(ctx context.Context, summary emoji.Summary) {
	for _, b := range emoji.Buckets() {
		metrics.RecordEmojiExtracted(string(b), summary.BucketTotal(b))
	}
	if summary.Total() == 0 {
		return
	}
	if err := s.board.AddSummary(ctx, summary); err != nil {
		s.logger.Warn(ctx, "failed to update emoji board", logger.Error(err))
	}
}

func observe(kind string, began time.Time) {
	metrics.RecordAnalysis(kind)
	metrics.RecordAnalysisLatency(kind, float64(time.Since(began).Nanoseconds())/nanosPerMilli)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"maxBatchSize": s.maxBatchSize,
	}

	if !s.started {
		return stats
	}

	counts := map[string]int{}
	for b, n := range s.catalog.Counts() {
		counts[string(b)] = n
	}
	stats["catalogSize"] = s.catalog.Len()
	stats["catalogSkipped"] = s.catalog.Skipped()
	stats["catalogBuckets"] = counts
	stats["workerCount"] = s.pool.Size()
	stats["activeWorkers"] = s.pool.Active()
	stats["queueLength"] = s.queue.Len(ctx)
	stats["distinctEmoji"] = s.board.Count(ctx)
	stats["cacheHits"] = s.cached.Hits()
	stats["cacheMisses"] = s.cached.Misses()
	stats["cacheSize"] = s.cached.Size()

	if p, ok := s.provider.(interface{ Configured() bool }); ok {
		stats["providerConfigured"] = p.Configured()
	}
	if p, ok := s.provider.(interface{ BreakerState() string }); ok {
		stats["breakerState"] = p.BreakerState()
	}

	metrics.UpdateQueueSize(s.queue.Len(ctx))
	metrics.UpdateWorkerCount(s.pool.Size())
	metrics.UpdateCacheSize(s.cached.Size())
	metrics.UpdateEmojiBoardEntries(s.board.Count(ctx))

	return stats
}
