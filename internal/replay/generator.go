package replay

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/okian/sentimoji/internal/domain/fusion"
	"github.com/okian/sentimoji/pkg/logger"
)

// Phrases and emoji the synthetic comments are assembled from.
var (
	positivePhrases = []string{
		"This is great",
		"I love this so much",
		"Best day ever",
		"What a wonderful surprise",
		"Totally worth it",
	}
	negativePhrases = []string{
		"This is terrible",
		"I hate waiting like this",
		"Worst service ever",
		"So disappointed right now",
		"Never buying again",
	}
	neutralPhrases = []string{
		"The package arrived today",
		"Meeting moved to Tuesday",
		"It is what it is",
		"Checking in from the airport",
	}
	positiveEmoji = []string{"\U0001F600", "\U0001F60D", "\U0001F44D", "\u2764\uFE0F", "\U0001F389"}
	negativeEmoji = []string{"\U0001F622", "\U0001F621", "\U0001F44E", "\U0001F494", "\U0001F62D"}
	neutralEmoji  = []string{"\U0001F44B", "\U0001F914", "\U0001F4E6", "\u2708\uFE0F"}
)

// Comment shapes drawn by the generator.
const (
	shapeAgreeing = iota
	shapeConflicting
	shapeEmojiOnly
	shapeTextOnly
	shapeNeutral
	shapeCount
)

const maxEmojiPerComment = 4

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func pick(items []string) string {
	return items[randomInt(len(items))]
}

func emojiRun(set []string) string {
	n := 1 + randomInt(maxEmojiPerComment)
	var b strings.Builder
	for range n {
		b.WriteString(pick(set))
	}
	return b.String()
}

// generateComments creates n synthetic comments covering every fusion path.
func generateComments(ctx context.Context, n int) []fusion.Comment {
	logger.Get().Info(ctx, "generating comments", logger.Int("count", n))

	comments := make([]fusion.Comment, n)
	for i := range comments {
		comments[i] = fusion.Comment{
			ID:   "comment_" + strconv.Itoa(i) + "_" + uuid.NewString()[:8],
			Text: syntheticText(randomInt(shapeCount), randomInt(2) == 0),
		}
	}
	return comments
}

func syntheticText(shape int, positive bool) string {
	phrases, own, other := positivePhrases, positiveEmoji, negativeEmoji
	if !positive {
		phrases, own, other = negativePhrases, negativeEmoji, positiveEmoji
	}

	switch shape {
	case shapeAgreeing:
		return pick(phrases) + " " + emojiRun(own)
	case shapeConflicting:
		return pick(phrases) + " " + emojiRun(other)
	case shapeEmojiOnly:
		return emojiRun(own)
	case shapeTextOnly:
		return pick(phrases)
	default:
		return pick(neutralPhrases) + " " + emojiRun(neutralEmoji)
	}
}

// loadComments reads a JSON array of comments, or of plain strings.
func loadComments(path string) ([]fusion.Comment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var comments []fusion.Comment
	if err := json.Unmarshal(data, &comments); err == nil {
		return comments, nil
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, errors.Wrapf(err, "parse %s: want an array of comments or strings", path)
	}
	comments = make([]fusion.Comment, len(texts))
	for i, t := range texts {
		comments[i] = fusion.Comment{ID: "line_" + strconv.Itoa(i), Text: t}
	}
	return comments, nil
}

// chunk splits comments into batches of at most size.
func chunk(comments []fusion.Comment, size int) [][]fusion.Comment {
	if size < 1 {
		size = 1
	}
	out := make([][]fusion.Comment, 0, (len(comments)+size-1)/size)
	for start := 0; start < len(comments); start += size {
		end := min(start+size, len(comments))
		out = append(out, comments[start:end])
	}
	return out
}
