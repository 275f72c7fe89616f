package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"

	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/pkg/metrics"
)

// Treap-backed, in-memory Store.
//
// Ordering: count DESC, then emoji ASC. "less" means ranks earlier, so an
// in-order traversal yields the board from most to least used.

type record struct {
	count    int64
	bucket   emoji.Bucket
	lastSeen time.Time
}

type node struct {
	key   string
	count int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aCount int64, aKey string, bCount int64, bKey string) bool {
	if aCount != bCount {
		return aCount > bCount
	}
	return aKey < bKey
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, key string, count int64) *node {
	if n == nil {
		return &node{key: key, count: count, prio: rand.Uint64(), size: 1}
	}
	if less(count, key, n.count, n.key) {
		n.left = insert(n.left, key, count)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, key, count)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, key string, count int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case count == n.count && key == n.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, key, count)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, key, count)
		}
	case less(count, key, n.count, n.key):
		n.left = deleteNode(n.left, key, count)
	default:
		n.right = deleteNode(n.right, key, count)
	}
	fix(n)
	return n
}

// collect appends up to limit keys in rank order.
func collect(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.key)
	}
	if len(*out) < limit {
		collect(n.right, limit, out)
	}
}

// Board is the default Store.
type Board struct {
	mu    sync.RWMutex
	root  *node
	byKey map[string]record
	clock clockwork.Clock
}

var _ Store = (*Board)(nil)

// NewBoard constructs an empty board.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		byKey: make(map[string]record),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.UpdateEmojiBoardEntries(0)
	return b
}

// Add implements Store.Add in O(log n) expected time.
func (b *Board) Add(_ context.Context, e string, bucket emoji.Bucket, n int64) (int64, error) {
	key := emoji.Normalize(e)
	if key == "" {
		return 0, ErrEmptyEmoji
	}
	if n < 1 {
		return 0, errors.Wrapf(ErrInvalidCount, "add %d", n)
	}

	b.mu.Lock()
	old, seen := b.byKey[key]
	if seen {
		b.root = deleteNode(b.root, key, old.count)
	}
	rec := record{count: old.count + n, bucket: bucket, lastSeen: b.clock.Now()}
	b.byKey[key] = rec
	b.root = insert(b.root, key, rec.count)
	size := len(b.byKey)
	b.mu.Unlock()

	if !seen {
		metrics.UpdateEmojiBoardEntries(size)
	}
	return rec.count, nil
}

// AddSummary implements Store.AddSummary.
func (b *Board) AddSummary(ctx context.Context, s emoji.Summary) error {
	for _, bucket := range emoji.Buckets() {
		for e, n := range s.SentimentCounts[bucket] {
			if _, err := b.Add(ctx, e, bucket, int64(n)); err != nil {
				return errors.Wrapf(err, "add %q", e)
			}
		}
	}
	return nil
}

// Rank returns the entry for e. Emoji with equal counts share a rank and
// ranks are consecutive.
func (b *Board) Rank(_ context.Context, e string) (Entry, error) {
	key := emoji.Normalize(e)

	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.byKey[key]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	higher := make(map[int64]struct{})
	for _, r := range b.byKey {
		if r.count > rec.count {
			higher[r.count] = struct{}{}
		}
	}
	return b.entry(key, rec, len(higher)+1), nil
}

// TopN returns the n most used emoji.
func (b *Board) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, min(n, len(b.byKey)))
	collect(b.root, n, &keys)

	out := make([]Entry, 0, len(keys))
	rank := 0
	var prev int64 = -1
	for _, k := range keys {
		rec := b.byKey[k]
		if rec.count != prev {
			rank++
			prev = rec.count
		}
		out = append(out, b.entry(k, rec, rank))
	}
	return out, nil
}

// Count returns the number of distinct emoji.
func (b *Board) Count(_ context.Context) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byKey)
}

func (b *Board) entry(key string, rec record, rank int) Entry {
	return Entry{Rank: rank, Emoji: key, Count: rec.count, Bucket: rec.bucket, LastSeen: rec.lastSeen}
}
