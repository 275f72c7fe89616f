package emoji

import "strings"

// Bucket is the coarse sentiment class of a single emoji.
type Bucket string

// Sentiment buckets. Every catalog entry lands in exactly one.
const (
	Positive  Bucket = "POSITIVE"
	Negative  Bucket = "NEGATIVE"
	Neutral   Bucket = "NEUTRAL"
	Ambiguous Bucket = "AMBIGUOUS"
)

// Buckets lists all buckets in report order.
func Buckets() []Bucket {
	return []Bucket{Positive, Negative, Neutral, Ambiguous}
}

// Metadata describes one emoji as published by a catalog source.
type Metadata struct {
	Unicode     string   `json:"emoji"`
	Tags        []string `json:"tags"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
}

// Classify assigns a bucket to an emoji from its tags, aliases and description.
//
// Greeting emoji are always positive. Otherwise a keyword hit on one side
// only decides the bucket, hits on both sides make it ambiguous, and no hit
// leaves it neutral.
func Classify(md Metadata) Bucket {
	description := strings.ToLower(md.Description)

	if isGreeting(md.Aliases, description) {
		return Positive
	}

	hasPositive := matches(positiveKeywords, md, description)
	hasNegative := matches(negativeKeywords, md, description)

	switch {
	case hasPositive && !hasNegative:
		return Positive
	case hasNegative && !hasPositive:
		return Negative
	case hasPositive && hasNegative:
		return Ambiguous
	default:
		return Neutral
	}
}

func isGreeting(aliases []string, description string) bool {
	for _, a := range aliases {
		if greetingAliases.has(a) {
			return true
		}
	}
	for _, d := range greetingDescriptions {
		if strings.Contains(description, d) {
			return true
		}
	}
	return false
}

// matches applies the three keyword rules: exact tag, alias substring and
// description substring.
func matches(keywords keywordSet, md Metadata, description string) bool {
	for _, t := range md.Tags {
		if keywords.has(t) {
			return true
		}
	}
	for _, a := range md.Aliases {
		if keywords.containedIn(a) {
			return true
		}
	}
	return keywords.containedIn(description)
}
