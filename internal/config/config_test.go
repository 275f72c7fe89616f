package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/sentimoji/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.CatalogSource, convey.ShouldEqual, config.CatalogGomoji)
			convey.So(cfg.CacheBackend, convey.ShouldEqual, config.CacheMemory)
			convey.So(cfg.GeminiTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.GeminiRetries, convey.ShouldEqual, 3)
			convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 100)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"addr":            func(c *config.Config) { c.Addr = " " },
			"log_level":       func(c *config.Config) { c.LogLevel = "chatty" },
			"catalog_source":  func(c *config.Config) { c.CatalogSource = "web" },
			"catalog_path":    func(c *config.Config) { c.CatalogSource = config.CatalogFile },
			"cache_backend":   func(c *config.Config) { c.CacheBackend = "disk" },
			"redis_addr":      func(c *config.Config) { c.CacheBackend = config.CacheRedis },
			"gemini_timeout":  func(c *config.Config) { c.GeminiTimeoutMS = 0 },
			"gemini_rps":      func(c *config.Config) { c.GeminiRPS = -1 },
			"gemini_retries":  func(c *config.Config) { c.GeminiRetries = 0 },
			"worker_count":    func(c *config.Config) { c.WorkerCount = -1 },
			"queue_size":      func(c *config.Config) { c.QueueSize = 0 },
			"max_batch_size":  func(c *config.Config) { c.MaxBatchSize = 0 },
			"max_text_length": func(c *config.Config) { c.MaxTextLength = 0 },
			"max_top_limit":   func(c *config.Config) { c.MaxTopLimit = 0 },
			"metrics_refresh": func(c *config.Config) { c.MetricsRefreshSec = 0 },
		}

		convey.Convey("Then each should be rejected as invalid config", func() {
			for _, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})

	convey.Convey("Given complete optional settings", t, func() {
		cfg := config.New()
		cfg.CatalogSource = config.CatalogFile
		cfg.CatalogPath = "emoji.json"
		cfg.CacheBackend = config.CacheRedis
		cfg.RedisAddr = "localhost:6379"

		convey.Convey("Then they should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
