package emoji

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/okian/sentimoji/pkg/logger"
)

// Extractor finds emoji in text.
type Extractor interface {
	// Extract returns the emoji of text in order, repeats included.
	Extract(text string) []string
	// IsEmoji reports whether s is a single known emoji.
	IsEmoji(s string) bool
	// Strip returns text with every emoji removed.
	Strip(text string) string
}

// Analyzer counts and buckets the emoji in a text against a catalog.
// It keeps no per-call state and is safe for concurrent use.
type Analyzer struct {
	catalog   *Catalog
	extractor Extractor
	log       logger.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger sets the logger used for per-emoji diagnostics.
func WithAnalyzerLogger(l logger.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAnalyzer creates an analyzer over catalog using extractor.
func NewAnalyzer(catalog *Catalog, extractor Extractor, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{catalog: catalog, extractor: extractor, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Catalog returns the catalog the analyzer scores against.
func (a *Analyzer) Catalog() *Catalog { return a.catalog }

// Strip removes the emoji from text with the analyzer's extractor and trims
// the rest. Without an extractor text is only trimmed.
func (a *Analyzer) Strip(text string) string {
	if a.extractor != nil {
		text = a.extractor.Strip(text)
	}
	return strings.TrimSpace(text)
}

// Analyze returns the emoji summary of text. Empty text, a missing
// extractor or a failure while extracting all yield an empty summary.
func (a *Analyzer) Analyze(ctx context.Context, text string) (s Summary) {
	if text == "" || a.extractor == nil {
		return NewSummary()
	}

	defer func() {
		if r := recover(); r != nil {
			err := errors.Mark(errors.Newf("analyze: %v", r), ErrExtractPanic)
			a.log.Error(ctx, "emoji analysis failed", logger.Error(err))
			s = NewSummary()
		}
	}()

	found := a.extractor.Extract(text)
	a.log.Debug(ctx, "extracted emoji",
		logger.Int("count", len(found)),
		logger.String("code_points", CodePoints(text)))

	s = NewSummary()
	for _, e := range found {
		bucket := a.catalog.Bucket(e)
		a.log.Debug(ctx, "processing emoji",
			logger.String("emoji", e),
			logger.String("code_points", CodePoints(e)),
			logger.Bool("is_emoji", a.extractor.IsEmoji(e)),
			logger.String("bucket", string(bucket)))
		s.add(e, bucket)
	}
	return s
}

// CodePoints renders s as UTF-16 escapes, e.g. "\ud83d\ude00".
func CodePoints(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r > 0xFFFF {
			r -= 0x10000
			fmt.Fprintf(&b, "\\u%04x\\u%04x", 0xD800+(r>>10), 0xDC00+(r&0x3FF))
			continue
		}
		fmt.Fprintf(&b, "\\u%04x", r)
	}
	return b.String()
}
