package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/sentimoji/internal/adapters/cache"
	"github.com/okian/sentimoji/internal/adapters/emojidata"
	"github.com/okian/sentimoji/internal/adapters/gemini"
	"github.com/okian/sentimoji/internal/adapters/http/api"
	"github.com/okian/sentimoji/internal/adapters/http/swagger"
	app "github.com/okian/sentimoji/internal/app"
	"github.com/okian/sentimoji/internal/config"
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/sentiment"
	"github.com/okian/sentimoji/internal/domain/verdictcache"
	"github.com/okian/sentimoji/pkg/logger"
	"github.com/okian/sentimoji/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Provider and cache connection constants.
const (
	geminiRetryBackoff = 200 * time.Millisecond
	redisDialTimeout   = 2 * time.Second
	redisIOTimeout     = 500 * time.Millisecond
)

func main() {
	// Our own runtime gauges replace the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)

	svc := newService(ctx, cfg, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// configureMetrics applies the recording switch and the gauge polling interval.
func configureMetrics(cfg *config.Config) {
	metrics.SetEnabled(cfg.MetricsEnabled)
	metrics.SetRefreshInterval(cfg.MetricsRefresh())
}

// newService wires the provider, cache and catalog source chosen by cfg.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) *app.Service {
	provider := newProvider(cfg, log)
	if !provider.Configured() {
		log.Warn(ctx, "gemini_api_key is empty; text verdicts will be ERROR")
	}

	return app.New(
		app.WithLogger(log),
		app.WithProvider(provider),
		app.WithCache(newCache(ctx, cfg, log)),
		app.WithCatalogSource(newCatalogSource(cfg)),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxBatchSize(cfg.MaxBatchSize),
	)
}

func newProvider(cfg *config.Config, log logger.Logger) *gemini.Client {
	opts := []gemini.Option{
		gemini.WithAPIKey(cfg.GeminiAPIKey),
		gemini.WithTimeout(cfg.GeminiTimeout()),
		gemini.WithRateLimit(cfg.GeminiRPS, cfg.GeminiBurst),
		gemini.WithRetry(cfg.GeminiRetries, geminiRetryBackoff),
		gemini.WithLogger(log.Named("gemini")),
	}
	if cfg.GeminiURL != "" {
		opts = append(opts, gemini.WithURL(cfg.GeminiURL))
	}
	return gemini.New(opts...)
}

// newCache returns the configured verdict cache, or nil to disable caching.
func newCache(ctx context.Context, cfg *config.Config, log logger.Logger) sentiment.Cache {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		c := cache.New(cache.NewClient(cache.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  redisDialTimeout,
			ReadTimeout:  redisIOTimeout,
			WriteTimeout: redisIOTimeout,
		}),
			cache.WithTTL(cfg.CacheTTL()),
			cache.WithLogger(log.Named("redis")),
		)
		if err := c.Ping(ctx); err != nil {
			log.Warn(ctx, "redis unreachable; verdicts will not be cached until it is back",
				logger.String("redis_addr", cfg.RedisAddr), logger.Error(err))
		}
		return c
	case config.CacheNone:
		return nil
	default:
		return verdictcache.New(
			verdictcache.WithMaxSize(cfg.CacheSize),
			verdictcache.WithTTL(cfg.CacheTTL()),
		)
	}
}

func newCatalogSource(cfg *config.Config) emoji.Source {
	if cfg.CatalogSource == config.CatalogFile {
		return emojidata.NewFileSource(cfg.CatalogPath)
	}
	return emojidata.NewGomojiSource()
}

// newMux registers the documentation and business routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxTextLength(cfg.MaxTextLength),
		api.WithMaxBatchSize(cfg.MaxBatchSize),
		api.WithMaxLimit(cfg.MaxTopLimit),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes the gauges that are not updated on the hot path.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if active, ok := stats["activeWorkers"].(int64); ok {
		metrics.UpdateWorkerActiveCount(int(active))
	}
	if size, ok := stats["cacheSize"].(int64); ok {
		metrics.UpdateCacheSize(size)
	}
	if n, ok := stats["distinctEmoji"].(int); ok {
		metrics.UpdateEmojiBoardEntries(n)
	}
}
