// Package config defines service configuration and how it is loaded.
//
// Keys are flat and match the koanf tags below; the same names are used in
// YAML files and, upper-cased with the SENTIMOJI_ prefix, in the environment.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Catalog sources.
const (
	CatalogGomoji = "gomoji"
	CatalogFile   = "file"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Gemini text sentiment provider. An empty key leaves the service
	// running with every text verdict reported as ERROR.
	GeminiAPIKey    string  `koanf:"gemini_api_key"`
	GeminiURL       string  `koanf:"gemini_url"`
	GeminiTimeoutMS int     `koanf:"gemini_timeout_ms"`
	GeminiRPS       float64 `koanf:"gemini_rps"`
	GeminiBurst     int     `koanf:"gemini_burst"`
	GeminiRetries   int     `koanf:"gemini_retries"`

	// CatalogSource selects where emoji metadata comes from: gomoji or file.
	CatalogSource string `koanf:"catalog_source"`
	// CatalogPath is the gemoji JSON file used when CatalogSource is file.
	CatalogPath string `koanf:"catalog_path"`

	// CacheBackend selects the verdict cache: memory, redis or none.
	CacheBackend  string `koanf:"cache_backend"`
	CacheSize     int    `koanf:"cache_size"`
	CacheTTLSec   int    `koanf:"cache_ttl_sec"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// WorkerCount sets the number of batch workers; 0 sizes from the CPU count.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the batch job queue.
	QueueSize int `koanf:"queue_size"`

	// MaxBatchSize caps the comments per batch request.
	MaxBatchSize int `koanf:"max_batch_size"`

	// MaxTextLength caps the characters per comment.
	MaxTextLength int `koanf:"max_text_length"`

	// MaxTopLimit caps GET /api/emoji/top?limit.
	MaxTopLimit int `koanf:"max_top_limit"`

	// MetricsEnabled turns Prometheus recording on or off. /metrics stays
	// mounted either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsRefreshSec sets how often runtime and service gauges are polled.
	MetricsRefreshSec int `koanf:"metrics_refresh_sec"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		GeminiTimeoutMS: 10_000,
		GeminiRPS:       10,
		GeminiBurst:     5,
		GeminiRetries:   3,
		CatalogSource:   CatalogGomoji,
		CacheBackend:    CacheMemory,
		CacheSize:       10_000,
		CacheTTLSec:     3600,
		WorkerCount:     0,
		QueueSize:       1024,
		MaxBatchSize:    100,
		MaxTextLength:   5000,
		MaxTopLimit:     100,

		MetricsEnabled:    true,
		MetricsRefreshSec: 10,
	}
}

// GeminiTimeout returns the per-call provider timeout.
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.GeminiTimeoutMS) * time.Millisecond
}

// CacheTTL returns how long verdicts stay cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// MetricsRefresh returns the gauge polling interval.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSec) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case !slices.Contains(logLevels, strings.ToLower(c.LogLevel)):
		return invalid("log_level %q is not one of %v", c.LogLevel, logLevels)
	case c.CatalogSource != CatalogGomoji && c.CatalogSource != CatalogFile:
		return invalid("catalog_source %q is not gomoji or file", c.CatalogSource)
	case c.CatalogSource == CatalogFile && c.CatalogPath == "":
		return invalid("catalog_source file requires catalog_path")
	case c.CacheBackend != CacheMemory && c.CacheBackend != CacheRedis && c.CacheBackend != CacheNone:
		return invalid("cache_backend %q is not memory, redis or none", c.CacheBackend)
	case c.CacheBackend == CacheRedis && c.RedisAddr == "":
		return invalid("cache_backend redis requires redis_addr")
	case c.GeminiTimeoutMS <= 0:
		return invalid("gemini_timeout_ms must be positive")
	case c.GeminiRPS < 0:
		return invalid("gemini_rps must not be negative")
	case c.GeminiRetries < 1:
		return invalid("gemini_retries must be at least 1")
	case c.WorkerCount < 0:
		return invalid("worker_count must not be negative")
	case c.QueueSize < 1:
		return invalid("queue_size must be positive")
	case c.MaxBatchSize < 1:
		return invalid("max_batch_size must be positive")
	case c.MaxTextLength < 1:
		return invalid("max_text_length must be positive")
	case c.MaxTopLimit < 1:
		return invalid("max_top_limit must be positive")
	case c.MetricsRefreshSec < 1:
		return invalid("metrics_refresh_sec must be positive")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidConfig)
}
