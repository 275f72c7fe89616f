package sentiment

import (
	"context"
	"sync/atomic"
)

// Cache stores verdicts keyed by the exact text that produced them.
type Cache interface {
	Get(ctx context.Context, text string) (Verdict, bool)
	Put(ctx context.Context, text string, v Verdict)
	Size() int64
}

// CacheObserver is notified of cache lookups.
type CacheObserver func(hit bool)

// CachedProvider serves repeated texts from a Cache and asks the wrapped
// provider otherwise. Failed verdicts are never stored.
type CachedProvider struct {
	next    Provider
	cache   Cache
	observe CacheObserver
	hits    atomic.Int64
	misses  atomic.Int64
}

// CachedOption configures a CachedProvider.
type CachedOption func(*CachedProvider)

// WithCacheObserver registers a callback for every lookup.
func WithCacheObserver(fn CacheObserver) CachedOption {
	return func(p *CachedProvider) {
		p.observe = fn
	}
}

// NewCachedProvider wraps next with cache. A nil cache disables caching.
func NewCachedProvider(next Provider, cache Cache, opts ...CachedOption) *CachedProvider {
	p := &CachedProvider{next: next, cache: cache}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AnalyzeSentiment implements Provider.
func (p *CachedProvider) AnalyzeSentiment(ctx context.Context, text string) Verdict {
	if p.cache == nil {
		return p.next.AnalyzeSentiment(ctx, text)
	}
	if v, ok := p.cache.Get(ctx, text); ok {
		p.hits.Add(1)
		p.notify(true)
		return v
	}
	p.misses.Add(1)
	p.notify(false)

	v := p.next.AnalyzeSentiment(ctx, text)
	if !v.IsError() {
		p.cache.Put(ctx, text, v)
	}
	return v
}

func (p *CachedProvider) notify(hit bool) {
	if p.observe != nil {
		p.observe(hit)
	}
}

// Hits returns the number of lookups answered from the cache.
func (p *CachedProvider) Hits() int64 { return p.hits.Load() }

// Misses returns the number of lookups forwarded to the wrapped provider.
func (p *CachedProvider) Misses() int64 { return p.misses.Load() }

// Size returns the number of cached verdicts, or zero without a cache.
func (p *CachedProvider) Size() int64 {
	if p.cache == nil {
		return 0
	}
	return p.cache.Size()
}
