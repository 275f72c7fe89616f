package emoji

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/pkg/logger"
)

// variationSelector16 requests emoji presentation; catalog keys drop it.
const variationSelector16 = "\uFE0F"

// defaultSampleSize is how many mappings are logged after a build.
const defaultSampleSize = 5

// Source provides the emoji metadata the catalog is built from.
type Source interface {
	All(ctx context.Context) ([]Metadata, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Metadata, error)

// All calls f.
func (f SourceFunc) All(ctx context.Context) ([]Metadata, error) { return f(ctx) }

// Entry is one catalog mapping.
type Entry struct {
	Emoji  string `json:"emoji"`
	Bucket Bucket `json:"bucket"`
}

// Catalog maps emoji to sentiment buckets. It is immutable once built and
// safe for concurrent reads. A nil Catalog behaves as an empty one.
type Catalog struct {
	buckets map[string]Bucket
	keys    []string
	skipped int
	built   time.Time
}

// Normalize returns the catalog key for an emoji.
func Normalize(e string) string {
	return strings.ReplaceAll(e, variationSelector16, "")
}

// NewCatalog builds a catalog from a fixed mapping. Keys are normalized.
func NewCatalog(m map[string]Bucket) *Catalog {
	buckets := make(map[string]Bucket, len(m))
	for k, b := range m {
		buckets[Normalize(k)] = b
	}
	return publish(buckets, 0)
}

// EmptyCatalog returns a catalog that knows no emoji.
func EmptyCatalog() *Catalog {
	return publish(map[string]Bucket{}, 0)
}

func publish(buckets map[string]Bucket, skipped int) *Catalog {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Catalog{buckets: buckets, keys: keys, skipped: skipped, built: time.Now()}
}

// Lookup returns the bucket for e and whether e is known.
func (c *Catalog) Lookup(e string) (Bucket, bool) {
	if c == nil {
		return "", false
	}
	b, ok := c.buckets[Normalize(e)]
	return b, ok
}

// Bucket returns the bucket for e, NEUTRAL when unknown.
func (c *Catalog) Bucket(e string) Bucket {
	if b, ok := c.Lookup(e); ok {
		return b
	}
	return Neutral
}

// Len returns the number of known emoji.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.buckets)
}

// Skipped returns how many source entries were dropped during the build.
func (c *Catalog) Skipped() int {
	if c == nil {
		return 0
	}
	return c.skipped
}

// BuiltAt returns when the catalog was published.
func (c *Catalog) BuiltAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.built
}

// Sample returns up to n entries in key order.
func (c *Catalog) Sample(n int) []Entry {
	if c == nil || n <= 0 {
		return nil
	}
	if n > len(c.keys) {
		n = len(c.keys)
	}
	out := make([]Entry, 0, n)
	for _, k := range c.keys[:n] {
		out = append(out, Entry{Emoji: k, Bucket: c.buckets[k]})
	}
	return out
}

// Counts returns the number of catalog entries per bucket.
func (c *Catalog) Counts() map[Bucket]int {
	out := make(map[Bucket]int, len(Buckets()))
	for _, b := range Buckets() {
		out[b] = 0
	}
	if c == nil {
		return out
	}
	for _, b := range c.buckets {
		out[b]++
	}
	return out
}

// BuildOption configures BuildCatalog.
type BuildOption func(*buildConfig)

type buildConfig struct {
	log        logger.Logger
	sampleSize int
	onSkip     func(md Metadata, err error)
}

// WithBuildLogger sets the logger used while building.
func WithBuildLogger(l logger.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSampleSize sets how many mappings are logged once the build completes.
func WithSampleSize(n int) BuildOption {
	return func(c *buildConfig) {
		if n >= 0 {
			c.sampleSize = n
		}
	}
}

// WithSkipHook registers a callback for every entry dropped during the build.
func WithSkipHook(fn func(md Metadata, err error)) BuildOption {
	return func(c *buildConfig) {
		c.onSkip = fn
	}
}

// BuildCatalog reads src once and classifies every entry.
//
// A bad entry is logged and skipped. If the source itself fails, or ctx is
// cancelled mid-build, the result is an empty catalog and never a partial one.
func BuildCatalog(ctx context.Context, src Source, opts ...BuildOption) *Catalog {
	cfg := buildConfig{log: logger.Nop(), sampleSize: defaultSampleSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	if src == nil {
		cfg.log.Error(ctx, "emoji catalog has no source")
		return EmptyCatalog()
	}

	all, err := src.All(ctx)
	if err != nil {
		cfg.log.Error(ctx, "failed to load emoji metadata",
			logger.Error(errors.Mark(err, ErrSourceFailed)))
		return EmptyCatalog()
	}
	cfg.log.Info(ctx, "initializing emoji sentiments", logger.Int("source_entries", len(all)))

	buckets := make(map[string]Bucket, len(all))
	skipped := 0
	for _, md := range all {
		if err := ctx.Err(); err != nil {
			cfg.log.Error(ctx, "emoji catalog build cancelled", logger.Error(err))
			return EmptyCatalog()
		}

		key, bucket, err := classifyEntry(md)
		if err != nil {
			skipped++
			cfg.log.Warn(ctx, "skipping emoji entry",
				logger.String("emoji", md.Unicode),
				logger.Any("aliases", md.Aliases),
				logger.Error(err))
			if cfg.onSkip != nil {
				cfg.onSkip(md, err)
			}
			continue
		}
		if _, dup := buckets[key]; dup {
			continue
		}
		buckets[key] = bucket
		cfg.log.Debug(ctx, "initialized emoji",
			logger.String("emoji", key),
			logger.Any("aliases", md.Aliases),
			logger.String("bucket", string(bucket)))
	}

	c := publish(buckets, skipped)
	cfg.log.Info(ctx, "emoji catalog initialized",
		logger.Int("emojis", c.Len()),
		logger.Int("skipped", skipped))
	for _, e := range c.Sample(cfg.sampleSize) {
		cfg.log.Info(ctx, "sample emoji mapping",
			logger.String("emoji", e.Emoji),
			logger.String("bucket", string(e.Bucket)))
	}
	return c
}

func classifyEntry(md Metadata) (key string, bucket Bucket, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Mark(errors.Newf("classify %q: %v", md.Unicode, r), ErrClassifyPanic)
		}
	}()

	key = Normalize(md.Unicode)
	if key == "" {
		return "", "", ErrEmptyUnicode
	}
	return key, Classify(md), nil
}
