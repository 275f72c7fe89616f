// Package cache stores text verdicts in Redis so replicas share them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/sentimoji/internal/domain/sentiment"
	"github.com/okian/sentimoji/pkg/logger"
	"github.com/okian/sentimoji/pkg/metrics"
)

// Default cache configuration constants.
const (
	DefaultPrefix = "sentimoji:verdict:"
	defaultTTL    = time.Hour
)

// Options for the Redis connection.
type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewClient opens a Redis client with command metrics attached.
func NewClient(o Options) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
	})
	rdb.AddHook(MetricsHook{})
	return rdb
}

// RedisCache implements sentiment.Cache on Redis. Redis failures are
// logged and treated as misses so analysis keeps working without it.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    logger.Logger
	stored atomic.Int64
}

var _ sentiment.Cache = (*RedisCache)(nil)

// Option applies a configuration option to the RedisCache.
type Option func(*RedisCache)

// WithTTL sets the expiry of stored verdicts.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(c *RedisCache) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Redis-backed verdict cache.
func New(rdb *redis.Client, opts ...Option) *RedisCache {
	c := &RedisCache{
		rdb:    rdb,
		ttl:    defaultTTL,
		prefix: DefaultPrefix,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key for text.
func (c *RedisCache) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get implements sentiment.Cache.
func (c *RedisCache) Get(ctx context.Context, text string) (sentiment.Verdict, bool) {
	raw, err := c.rdb.Get(ctx, c.Key(text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentiment.Verdict{}, false
	}
	if err != nil {
		c.log.Warn(ctx, "verdict cache read failed", logger.Error(err))
		return sentiment.Verdict{}, false
	}
	var v sentiment.Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warn(ctx, "verdict cache entry unreadable", logger.Error(err))
		return sentiment.Verdict{}, false
	}
	return v, true
}

// Put implements sentiment.Cache.
func (c *RedisCache) Put(ctx context.Context, text string, v sentiment.Verdict) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn(ctx, "verdict cache encode failed", logger.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, c.Key(text), raw, c.ttl).Err(); err != nil {
		c.log.Warn(ctx, "verdict cache write failed", logger.Error(err))
		return
	}
	c.stored.Add(1)
}

// Size returns how many verdicts this process has written. Entries expire
// in Redis on their own, so this is an upper bound.
func (c *RedisCache) Size() int64 {
	return c.stored.Load()
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return errors.Wrap(c.rdb.Ping(ctx).Err(), "ping redis")
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// MetricsHook records every Redis command in pkg/metrics.
type MetricsHook struct{}

var _ redis.Hook = MetricsHook{}

// DialHook implements redis.Hook.
func (MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		metrics.RecordRedisOp("dial", status(err), float64(time.Since(start).Milliseconds()))
		return conn, err
	}
}

// ProcessHook implements redis.Hook.
func (MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		metrics.RecordRedisOp(cmd.Name(), status(err), float64(time.Since(start).Milliseconds()))
		return err
	}
}

// ProcessPipelineHook implements redis.Hook.
func (MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		metrics.RecordRedisOp("pipeline", status(err), float64(time.Since(start).Milliseconds()))
		return err
	}
}

func status(err error) string {
	if err != nil && !errors.Is(err, redis.Nil) {
		return "error"
	}
	return "success"
}
