// Package sentiment defines the text verdict returned by a sentiment provider.
package sentiment

import (
	"context"
	"strings"
)

// Label is the coarse polarity assigned to a piece of text.
type Label string

// Text verdict labels. ERROR means the provider call failed.
const (
	Positive Label = "POSITIVE"
	Negative Label = "NEGATIVE"
	Neutral  Label = "NEUTRAL"
	Error    Label = "ERROR"
)

// Scores paired with each label.
const (
	PositiveScore = 1.0
	NegativeScore = -1.0
	NeutralScore  = 0.0
)

// Verdict is the result of a text sentiment call.
type Verdict struct {
	Sentiment Label   `json:"sentiment"`
	Score     float64 `json:"score"`
}

// Failed is the verdict reported whenever the provider cannot answer.
func Failed() Verdict { return Verdict{Sentiment: Error, Score: NeutralScore} }

// IsError reports whether v is a failed verdict.
func (v Verdict) IsError() bool { return v.Sentiment == Error }

// FromModelText maps free-form model output onto a verdict. The first
// polarity word found wins, positive before negative.
func FromModelText(text string) Verdict {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "positive"):
		return Verdict{Sentiment: Positive, Score: PositiveScore}
	case strings.Contains(lower, "negative"):
		return Verdict{Sentiment: Negative, Score: NegativeScore}
	default:
		return Verdict{Sentiment: Neutral, Score: NeutralScore}
	}
}

// ParseLabel converts a label string, case-insensitively, to a Label.
func ParseLabel(s string) (Label, bool) {
	switch Label(strings.ToUpper(strings.TrimSpace(s))) {
	case Positive:
		return Positive, true
	case Negative:
		return Negative, true
	case Neutral:
		return Neutral, true
	case Error:
		return Error, true
	}
	return "", false
}

// Provider classifies text. Implementations never return an error; every
// failure is reported as an ERROR verdict.
type Provider interface {
	AnalyzeSentiment(ctx context.Context, text string) Verdict
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, text string) Verdict

// AnalyzeSentiment calls f.
func (f ProviderFunc) AnalyzeSentiment(ctx context.Context, text string) Verdict {
	return f(ctx, text)
}

// Static returns a provider that always answers v.
func Static(v Verdict) Provider {
	return ProviderFunc(func(context.Context, string) Verdict { return v })
}
