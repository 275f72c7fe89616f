package emoji

import (
	"fmt"
	"sort"
	"strings"
)

// Summary holds the emoji found in one text. Every counted emoji appears
// once in EmojiCounts and once in exactly one bucket of SentimentCounts.
type Summary struct {
	EmojiCounts     map[string]int            `json:"emojiCounts"`
	SentimentCounts map[Bucket]map[string]int `json:"sentimentCounts"`
}

// NewSummary returns an empty summary with all four buckets present.
func NewSummary() Summary {
	sc := make(map[Bucket]map[string]int, len(Buckets()))
	for _, b := range Buckets() {
		sc[b] = map[string]int{}
	}
	return Summary{EmojiCounts: map[string]int{}, SentimentCounts: sc}
}

func (s Summary) add(e string, b Bucket) {
	s.EmojiCounts[e]++
	s.SentimentCounts[b][e]++
}

// Total returns the number of emoji occurrences.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.EmojiCounts {
		n += c
	}
	return n
}

// BucketTotal returns the number of occurrences that fell in b.
func (s Summary) BucketTotal(b Bucket) int {
	n := 0
	for _, c := range s.SentimentCounts[b] {
		n += c
	}
	return n
}

// Score is (pos-neg)/(pos+neg) over occurrence counts, or 0 without any
// positive or negative emoji.
func (s Summary) Score() float64 {
	pos := s.BucketTotal(Positive)
	neg := s.BucketTotal(Negative)
	if pos+neg == 0 {
		return 0.0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// Report renders the summary as human-readable text.
func (s Summary) Report() string {
	var b strings.Builder
	b.WriteString("Emoji analysis report\n")
	b.WriteString("=====================\n\n")
	fmt.Fprintf(&b, "Total emoji found: %d\n\n", s.Total())

	for _, bucket := range Buckets() {
		counts := s.SentimentCounts[bucket]
		if len(counts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", bucket)
		for _, e := range byCount(counts) {
			fmt.Fprintf(&b, "  %s : %d time(s)\n", e, counts[e])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Sentiment score: %.2f (-1 very negative, +1 very positive)\n", s.Score())
	return b.String()
}

// byCount orders emoji by count descending, then by string.
func byCount(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Detailed is a summary together with its rendered report and score.
type Detailed struct {
	Summary
	Report string  `json:"report"`
	Score  float64 `json:"score"`
}

// Detailed renders the report and score once.
func (s Summary) Detailed() Detailed {
	return Detailed{Summary: s, Report: s.Report(), Score: s.Score()}
}
