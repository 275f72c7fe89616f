package fusion

import (
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/sentiment"
)

// Analysis is the outcome of a combined text and emoji analysis of one comment.
type Analysis struct {
	ID                string            `json:"id"`
	TextAnalysis      sentiment.Verdict `json:"textAnalysis"`
	EmojiAnalysis     emoji.Detailed    `json:"emojiAnalysis"`
	CombinedSentiment Label             `json:"combinedSentiment"`
	Degraded          bool              `json:"degraded,omitempty"`
	Error             string            `json:"error,omitempty"`
}

// Combine fuses a text verdict and an emoji summary into an Analysis.
func Combine(id string, text sentiment.Verdict, emojis emoji.Summary) Analysis {
	r := FuseDetailed(text, emojis)
	return Analysis{
		ID:                id,
		TextAnalysis:      text,
		EmojiAnalysis:     emojis.Detailed(),
		CombinedSentiment: r.Label,
		Degraded:          r.Degraded,
	}
}

// Failed reports an analysis that could not be completed.
func Failed(id string, err error) Analysis {
	return Analysis{
		ID:                id,
		TextAnalysis:      sentiment.Failed(),
		EmojiAnalysis:     emoji.NewSummary().Detailed(),
		CombinedSentiment: Error,
		Error:             err.Error(),
	}
}

// Comment is one piece of user text submitted for analysis.
type Comment struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
