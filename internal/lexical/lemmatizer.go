package lexical

import (
	"github.com/kljensen/snowball"
)

// SnowballLemmatizer approximates lemmas with a Snowball stemmer. Stems are
// prefixes of the inflected forms, which is exactly what KeywordHits needs.
type SnowballLemmatizer struct {
	language string
}

// NewSnowballLemmatizer returns a stemmer for language ("russian", "english", ...).
func NewSnowballLemmatizer(language string) *SnowballLemmatizer {
	return &SnowballLemmatizer{language: language}
}

// Lemma returns the stem of word, or word itself when stemming fails.
func (l *SnowballLemmatizer) Lemma(word string) string {
	stem, err := snowball.Stem(word, l.language, false)
	if err != nil || stem == "" {
		return word
	}
	return stem
}
