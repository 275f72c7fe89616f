package emojidata

import (
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"

	"github.com/okian/sentimoji/internal/domain/emoji"
)

// Membership reports whether a grapheme cluster is an emoji.
type Membership func(cluster string) bool

// GomojiMembership recognizes clusters gomoji knows, with or without the
// emoji presentation selector.
func GomojiMembership(cluster string) bool {
	if _, err := gomoji.GetInfo(cluster); err == nil {
		return true
	}
	if bare := emoji.Normalize(cluster); bare != cluster && bare != "" {
		if _, err := gomoji.GetInfo(bare); err == nil {
			return true
		}
	}
	if _, err := gomoji.GetInfo(cluster + "\uFE0F"); err == nil {
		return true
	}
	return false
}

// CatalogMembership recognizes clusters present in c.
func CatalogMembership(c *emoji.Catalog) Membership {
	return func(cluster string) bool {
		_, ok := c.Lookup(cluster)
		return ok
	}
}

// AnyOf recognizes a cluster if any of ms does.
func AnyOf(ms ...Membership) Membership {
	return func(cluster string) bool {
		for _, m := range ms {
			if m != nil && m(cluster) {
				return true
			}
		}
		return false
	}
}

// GraphemeExtractor finds emoji by walking the grapheme clusters of a text,
// so multi-rune emoji such as flags, ZWJ sequences and skin tones stay whole.
type GraphemeExtractor struct {
	isEmoji Membership
}

var _ emoji.Extractor = (*GraphemeExtractor)(nil)

// NewGraphemeExtractor returns an extractor using isEmoji, or gomoji's
// catalog when isEmoji is nil.
func NewGraphemeExtractor(isEmoji Membership) *GraphemeExtractor {
	if isEmoji == nil {
		isEmoji = GomojiMembership
	}
	return &GraphemeExtractor{isEmoji: isEmoji}
}

// Extract implements emoji.Extractor.
func (x *GraphemeExtractor) Extract(text string) []string {
	var out []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if c := g.Str(); x.isEmoji(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsEmoji implements emoji.Extractor.
func (x *GraphemeExtractor) IsEmoji(s string) bool {
	return s != "" && uniseg.GraphemeClusterCount(s) == 1 && x.isEmoji(s)
}

// Strip implements emoji.Extractor.
func (x *GraphemeExtractor) Strip(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if c := g.Str(); !x.isEmoji(c) {
			b.WriteString(c)
		}
	}
	return b.String()
}
