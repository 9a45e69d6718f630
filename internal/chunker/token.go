package chunker

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough token count for a document: about 1.33
// tokens per whitespace-separated word, plus one per Han, Hiragana,
// Katakana or Hangul character, which are not space separated.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	cjk := 0
	latin := strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			cjk++
			return ' '
		}
		return r
	}, text)
	tokens := int(float64(len(strings.Fields(latin)))*1.33) + cjk
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
