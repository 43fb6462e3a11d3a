package lexical

import (
	"strings"
	"unicode"
)

// LooksLikeNoise reports whether text reads like an ad, a jingle or digit
// filler from a media transcript.
func LooksLikeNoise(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}

	tokens := Tokenize(lower)
	if len(tokens) < 3 {
		return false
	}
	filler := 0
	for _, t := range tokens {
		if len([]rune(t)) <= 2 && isDigits(t) {
			filler++
		}
	}
	return filler*2 > len(tokens)
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
