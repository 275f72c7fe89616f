// Package verdictcache keeps recent text verdicts in memory.
package verdictcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/sentimoji/internal/domain/sentiment"
)

// Default cache configuration constants.
const (
	defaultMaxSize = 10000
	defaultTTL     = time.Hour
)

// node is one cached verdict in the insertion-ordered list.
type node struct {
	text    string
	verdict sentiment.Verdict
	stored  time.Time
	prev    *node
	next    *node
}

// reset clears the node state for reuse
func (n *node) reset() {
	n.text = ""
	n.verdict = sentiment.Verdict{}
	n.stored = time.Time{}
	n.prev = nil
	n.next = nil
}

// Cache implements sentiment.Cache with a bounded map and a doubly linked
// list ordered by insertion. When full, the oldest entry is evicted.
// A maxSize <= 0 disables the bound.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*node
	head     *node // most recently stored
	tail     *node // oldest
	maxSize  int
	ttl      time.Duration
	clock    clockwork.Clock
	size     atomic.Int64
	nodePool sync.Pool
}

var _ sentiment.Cache = (*Cache)(nil)

// New creates an in-memory verdict cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		clock:   clockwork.NewRealClock(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	c.entries = make(map[string]*node)
	c.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return c
}

// Get returns the verdict stored for text if present and not expired.
func (c *Cache) Get(_ context.Context, text string) (sentiment.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[text]
	if !ok {
		return sentiment.Verdict{}, false
	}
	if c.expired(n) {
		c.remove(n)
		return sentiment.Verdict{}, false
	}
	return n.verdict, true
}

// Put stores v for text, replacing any previous verdict.
func (c *Cache) Put(_ context.Context, text string, v sentiment.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[text]; ok {
		c.remove(old)
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	n := c.nodePool.Get().(*node)
	n.text = text
	n.verdict = v
	n.stored = c.clock.Now()
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
	c.entries[text] = n
	c.size.Add(1)
}

// Delete removes the verdict for text, if any.
func (c *Cache) Delete(_ context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[text]; ok {
		c.remove(n)
	}
}

// Size returns the current number of entries.
func (c *Cache) Size() int64 {
	return c.size.Load()
}

func (c *Cache) expired(n *node) bool {
	return c.ttl > 0 && c.clock.Now().Sub(n.stored) > c.ttl
}

// evictOldest drops the tail. Must be called with c.mu held.
func (c *Cache) evictOldest() {
	if c.tail != nil {
		c.remove(c.tail)
	}
}

// remove unlinks n and returns it to the pool. Must be called with c.mu held.
func (c *Cache) remove(n *node) {
	delete(c.entries, n.text)
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.reset()
	c.nodePool.Put(n)
	c.size.Add(-1)
}
