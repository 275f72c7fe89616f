// Package fusion combines a text verdict with the emoji found in the same
// comment into a single label.
package fusion

import (
	"github.com/okian/sentimoji/internal/domain/emoji"
	"github.com/okian/sentimoji/internal/domain/sentiment"
)

// Label is a fused verdict.
type Label string

// Fused labels.
const (
	VeryPositive Label = "VERY POSITIVE"
	Positive     Label = "POSITIVE"
	VeryNegative Label = "VERY NEGATIVE"
	Negative     Label = "NEGATIVE"
	Neutral      Label = "NEUTRAL"
	Error        Label = "ERROR"
)

// Result is a fused label together with how it was reached.
type Result struct {
	Label Label
	// Degraded is set when the text verdict failed and the label came from
	// emoji alone.
	Degraded bool
}

// Fuse returns the fused label for a text verdict and an emoji summary.
// It is total: every verdict, including ERROR, and every summary map to a label.
func Fuse(text sentiment.Verdict, emojis emoji.Summary) Label {
	return FuseDetailed(text, emojis).Label
}

// FuseDetailed is Fuse plus the degraded flag.
//
// Rules, in order:
//  1. no positive and no negative emoji: the text label passes through;
//  2. text ERROR: the emoji majority decides and the result is degraded;
//  3. text NEUTRAL: the emoji majority decides;
//  4. strong agreement or a 2:1 emoji majority escalates to VERY;
//  5. otherwise the text label stands.
func FuseDetailed(text sentiment.Verdict, emojis emoji.Summary) Result {
	pos := emojis.BucketTotal(emoji.Positive)
	neg := emojis.BucketTotal(emoji.Negative)

	if pos == 0 && neg == 0 {
		return Result{Label: fromText(text.Sentiment)}
	}

	switch text.Sentiment {
	case sentiment.Error:
		return Result{Label: majority(pos, neg), Degraded: true}
	case sentiment.Neutral:
		return Result{Label: majority(pos, neg)}
	}

	textPositive := text.Sentiment == sentiment.Positive
	textNegative := text.Sentiment == sentiment.Negative

	switch {
	case (textPositive && pos > neg) || (pos > 0 && pos > 2*neg):
		return Result{Label: VeryPositive}
	case (textNegative && neg > pos) || (neg > 0 && neg > 2*pos):
		return Result{Label: VeryNegative}
	default:
		return Result{Label: fromText(text.Sentiment)}
	}
}

func majority(pos, neg int) Label {
	switch {
	case pos > neg:
		return Positive
	case neg > pos:
		return Negative
	default:
		return Neutral
	}
}

// fromText maps a text label onto the fused label set. Labels outside the
// known set are reported as ERROR.
func fromText(l sentiment.Label) Label {
	switch l {
	case sentiment.Positive:
		return Positive
	case sentiment.Negative:
		return Negative
	case sentiment.Neutral:
		return Neutral
	default:
		return Error
	}
}
