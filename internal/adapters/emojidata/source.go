// Package emojidata supplies emoji metadata and emoji extraction to the
// domain analyzer.
package emojidata

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/forPelevin/gomoji"

	"github.com/okian/sentimoji/internal/domain/emoji"
)

// versionPrefix matches the "E13.0 " prefix of gomoji unicode names.
var versionPrefix = regexp.MustCompile(`^E\d+(\.\d+)?\s+`)

// GomojiSource reads the emoji list bundled with gomoji.
type GomojiSource struct{}

var _ emoji.Source = GomojiSource{}

// NewGomojiSource returns a source over gomoji's catalog.
func NewGomojiSource() GomojiSource {
	return GomojiSource{}
}

// All implements emoji.Source.
func (GomojiSource) All(ctx context.Context) ([]emoji.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "gomoji source")
	}
	all := gomoji.AllEmojis()
	out := make([]emoji.Metadata, 0, len(all))
	for _, e := range all {
		out = append(out, FromGomoji(e))
	}
	return out, nil
}

// FromGomoji maps a gomoji entry onto catalog metadata. The slug becomes two
// aliases, gemoji style with underscores and joined without separators
// ("thumbs_down", "thumbsdown"). The unicode name without its version is the
// description. Group and subgroup are kept whole as tags; their words are
// not, since subgroups like "hand-fingers-closed" say nothing about mood.
func FromGomoji(e gomoji.Emoji) emoji.Metadata {
	return emoji.Metadata{
		Unicode:     e.Character,
		Description: versionPrefix.ReplaceAllString(e.UnicodeName, ""),
		Aliases:     aliasesFor(e.Slug),
		Tags:        uniqueLower(e.Group, e.SubGroup),
	}
}

func aliasesFor(slug string) []string {
	if slug == "" {
		return nil
	}
	return uniqueLower(
		strings.ReplaceAll(slug, "-", "_"),
		strings.ReplaceAll(slug, "-", ""),
	)
}

func uniqueLower(values ...string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FileSource reads a gemoji-format JSON file: an array of objects with
// emoji, description, aliases and tags.
type FileSource struct {
	path string
}

var _ emoji.Source = FileSource{}

// NewFileSource returns a source reading path.
func NewFileSource(path string) FileSource {
	return FileSource{path: path}
}

// All implements emoji.Source.
func (s FileSource) All(ctx context.Context) ([]emoji.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "emoji file source")
	}
	if s.path == "" {
		return nil, ErrNoPath
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read emoji file %s", s.path)
	}
	var out []emoji.Metadata
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode emoji file %s", s.path), ErrMalformed)
	}
	return out, nil
}
