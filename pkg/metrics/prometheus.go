// Package metrics provides Prometheus metrics for the sentimoji analysis service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the sentimoji service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics - what the service is for
	analyses          *prometheus.CounterVec
	textVerdicts      *prometheus.CounterVec
	fusedVerdicts     *prometheus.CounterVec
	emojiExtracted    *prometheus.CounterVec
	degradedAnalyses  prometheus.Counter
	analysisLatency   *prometheus.HistogramVec
	analysisFailures  prometheus.Counter
	batchSize         prometheus.Histogram
	emojiBoardEntries prometheus.Gauge

	// Text provider metrics
	providerLatency prometheus.Histogram
	providerErrors  *prometheus.CounterVec
	cacheRequests   *prometheus.CounterVec
	cacheSize       prometheus.Gauge
	redisOps        *prometheus.CounterVec
	redisOpDuration *prometheus.HistogramVec

	// Catalog metrics
	catalogSize          prometheus.Gauge
	catalogBuildDuration prometheus.Histogram
	catalogSkipped       prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics - batch job queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - batch processing
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics - detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sentimoji",
		subsystem:        "analyzer",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// RefreshInterval returns how often gauges should be refreshed by background updaters.
func (m *Manager) RefreshInterval() time.Duration { return time.Duration(m.refreshInterval.Load()) }

func (m *Manager) setRefresh(d time.Duration) {
	if d > 0 {
		m.refreshInterval.Store(int64(d))
	}
}

// SetEnabled switches recording of the package manager on or off. While off,
// every Record and Update call returns without touching a series.
func SetEnabled(on bool) { globalManager.enabled.Store(on) }

// Enabled reports whether the package manager records observations.
func Enabled() bool { return globalManager.Enabled() }

// SetRefreshInterval sets the package manager's gauge polling interval.
// Non-positive values are ignored.
func SetRefreshInterval(d time.Duration) { globalManager.setRefresh(d) }

// RefreshInterval returns the package manager's gauge polling interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// active returns the package manager, or nil while recording is off.
func active() *Manager {
	if !globalManager.enabled.Load() {
		return nil
	}
	return globalManager
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.analyses = auto.NewCounterVec(m.counterOpts("analyses_total",
		"Total number of analyses by kind (text, emoji, combined, batch)"), []string{"kind"})
	m.textVerdicts = auto.NewCounterVec(m.counterOpts("text_verdicts_total",
		"Text provider verdicts by label"), []string{"label"})
	m.fusedVerdicts = auto.NewCounterVec(m.counterOpts("fused_verdicts_total",
		"Fused verdicts by label"), []string{"label"})
	m.emojiExtracted = auto.NewCounterVec(m.counterOpts("emoji_extracted_total",
		"Emoji occurrences found in analyzed text by bucket"), []string{"bucket"})
	m.degradedAnalyses = auto.NewCounter(m.counterOpts("degraded_total",
		"Combined analyses resolved from emoji alone because the text provider failed"))
	m.analysisLatency = auto.NewHistogramVec(m.histogramOpts("analysis_latency_milliseconds",
		"Analysis latency in milliseconds by kind", nil), []string{"kind"})
	m.analysisFailures = auto.NewCounter(m.counterOpts("analysis_failures_total",
		"Combined analyses that failed internally and reported an error field"))
	m.batchSize = auto.NewHistogram(m.histogramOpts("batch_size",
		"Number of comments per batch request", []float64{1, 2, 5, 10, 25, 50, 100, 250}))
	m.emojiBoardEntries = auto.NewGauge(m.gaugeOpts("emoji_board_entries",
		"Distinct emoji tracked by the usage board"))

	// Text provider metrics
	m.providerLatency = auto.NewHistogram(m.histogramOpts("provider_latency_milliseconds",
		"Text sentiment provider call latency in milliseconds",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000}))
	m.providerErrors = auto.NewCounterVec(m.counterOpts("provider_errors_total",
		"Text sentiment provider failures by reason"), []string{"reason"})
	m.cacheRequests = auto.NewCounterVec(m.counterOpts("cache_requests_total",
		"Verdict cache lookups by result (hit, miss)"), []string{"result"})
	m.cacheSize = auto.NewGauge(m.gaugeOpts("cache_size",
		"Current number of cached text verdicts"))
	m.redisOps = auto.NewCounterVec(m.counterOpts("redis_operations_total",
		"Redis commands by operation and status"), []string{"operation", "status"})
	m.redisOpDuration = auto.NewHistogramVec(m.histogramOpts("redis_operation_duration_milliseconds",
		"Redis command latency in milliseconds", []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250}), []string{"operation"})

	// Catalog metrics
	m.catalogSize = auto.NewGauge(m.gaugeOpts("catalog_size",
		"Number of emoji in the sentiment catalog"))
	m.catalogBuildDuration = auto.NewHistogram(m.histogramOpts("catalog_build_duration_milliseconds",
		"Catalog build duration in milliseconds", nil))
	m.catalogSkipped = auto.NewCounter(m.counterOpts("catalog_skipped_total",
		"Catalog entries skipped during build"))

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", nil), []string{"endpoint", "method", "status_code"})

	// Queue Metrics
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the batch job queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio",
		"Queue utilization ratio (current size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of enqueue errors"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_processing_latency_milliseconds",
		"Queue enqueue latency in milliseconds", nil))

	// Worker Metrics
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of batch workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Number of running batch workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Worker job processing latency in milliseconds", nil))
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of worker errors"))

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Total number of errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds",
		"Latency of operations that resulted in errors", nil), []string{"component", "error_type"})

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordAnalysis increments the analyses counter for kind.
func RecordAnalysis(kind string) {
	m := active()
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(kind).Inc()
}

// RecordAnalysisLatency records analysis latency in milliseconds.
func RecordAnalysisLatency(kind string, latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.analysisLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordAnalysisFailure increments the internal failure counter.
func RecordAnalysisFailure() {
	m := active()
	if m == nil {
		return
	}
	m.analysisFailures.Inc()
}

// RecordTextVerdict counts a text provider verdict.
func RecordTextVerdict(label string) {
	m := active()
	if m == nil {
		return
	}
	m.textVerdicts.WithLabelValues(label).Inc()
}

// RecordFusedVerdict counts a fused verdict.
func RecordFusedVerdict(label string) {
	m := active()
	if m == nil {
		return
	}
	m.fusedVerdicts.WithLabelValues(label).Inc()
}

// RecordEmojiExtracted adds n emoji occurrences for bucket.
func RecordEmojiExtracted(bucket string, n int) {
	m := active()
	if m == nil || n <= 0 {
		return
	}
	m.emojiExtracted.WithLabelValues(bucket).Add(float64(n))
}

// RecordDegraded counts a combined analysis resolved without a text verdict.
func RecordDegraded() {
	m := active()
	if m == nil {
		return
	}
	m.degradedAnalyses.Inc()
}

// RecordBatchSize observes the size of a batch request.
func RecordBatchSize(n int) {
	m := active()
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

// UpdateEmojiBoardEntries sets the number of distinct emoji on the usage board.
func UpdateEmojiBoardEntries(n int) {
	m := active()
	if m == nil {
		return
	}
	m.emojiBoardEntries.Set(float64(n))
}

// RecordProviderLatency records a text provider call latency.
func RecordProviderLatency(latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.providerLatency.Observe(latencyMs)
}

// RecordProviderError counts a text provider failure.
func RecordProviderError(reason string) {
	m := active()
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(reason).Inc()
}

// RecordCacheHit counts a verdict cache hit.
func RecordCacheHit() {
	m := active()
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts a verdict cache miss.
func RecordCacheMiss() {
	m := active()
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

// UpdateCacheSize sets the verdict cache size.
func UpdateCacheSize(n int64) {
	m := active()
	if m == nil {
		return
	}
	m.cacheSize.Set(float64(n))
}

// RecordRedisOp records one Redis command.
func RecordRedisOp(operation, status string, latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.redisOps.WithLabelValues(operation, status).Inc()
	m.redisOpDuration.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateCatalogSize sets the catalog size gauge.
func UpdateCatalogSize(n int) {
	m := active()
	if m == nil {
		return
	}
	m.catalogSize.Set(float64(n))
}

// RecordCatalogBuildDuration records how long the catalog build took.
func RecordCatalogBuildDuration(ms float64) {
	m := active()
	if m == nil {
		return
	}
	m.catalogBuildDuration.Observe(ms)
}

// RecordCatalogSkipped counts a skipped catalog entry.
func RecordCatalogSkipped() {
	m := active()
	if m == nil {
		return
	}
	m.catalogSkipped.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	m := active()
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m := active()
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	m := active()
	if m == nil {
		return
	}
	m.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	m := active()
	if m == nil {
		return
	}
	m.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	m := active()
	if m == nil {
		return
	}
	m.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	m := active()
	if m == nil {
		return
	}
	m.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	m := active()
	if m == nil {
		return
	}
	m.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	m := active()
	if m == nil {
		return
	}
	m.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	m := active()
	if m == nil {
		return
	}
	m.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	m := active()
	if m == nil {
		return
	}
	m.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	m := active()
	if m == nil {
		return
	}
	m.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	m := active()
	if m == nil {
		return
	}
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	m := active()
	if m == nil {
		return
	}
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	m := active()
	if m == nil {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	m := active()
	if m == nil {
		return
	}
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	m := active()
	if m == nil {
		return
	}
	m.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
