package verdictcache

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithMaxSize sets the maximum number of verdicts to keep.
// If maxSize > 0: bounded, oldest entry evicted first.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(c *Cache) {
		c.maxSize = maxSize
	}
}

// WithTTL sets how long a verdict stays valid. Zero or less keeps verdicts
// until they are evicted.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock sets the clock used to age entries.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}
