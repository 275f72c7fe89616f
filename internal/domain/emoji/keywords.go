package emoji

import "strings"

type keywordSet map[string]struct{}

func newKeywordSet(words ...string) keywordSet {
	s := make(keywordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s keywordSet) has(word string) bool {
	_, ok := s[word]
	return ok
}

// containedIn reports whether any keyword is a substring of text.
func (s keywordSet) containedIn(text string) bool {
	if text == "" {
		return false
	}
	for w := range s {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Keyword sets are read-only after package init.
var (
	positiveKeywords = newKeywordSet(
		"smile", "love", "joy", "happy", "heart", "celebration",
		"party", "win", "victory", "success", "laugh", "sun", "star",
		"gift", "trophy", "medal", "thumbsup", "yes", "ok", "wave",
		"hello", "welcome", "hand", "greet", "friendly", "hug", "kiss",
		"grin", "wink", "celebrate", "sparkles", "rainbow", "music",
		"dance", "clap", "tada", "cool", "awesome", "perfect", "good",
	)

	negativeKeywords = newKeywordSet(
		"angry", "sad", "cry", "tears", "worried", "fear", "scared",
		"upset", "rage", "hate", "thumbsdown", "no", "broken",
		"sick", "devil", "curse", "dead", "skull", "disappointed",
		"frustrated", "mad", "annoyed", "hurt", "heartbreak", "pain",
		"tired", "exhausted", "confused", "wrong", "bad", "terrible",
	)

	greetingAliases      = newKeywordSet("wave", "raised_hand")
	greetingDescriptions = []string{"waving", "hello"}
)
