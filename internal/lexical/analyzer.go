// Package lexical extracts keywords from queries and counts keyword hits in
// chunk text. Everything here is pure and safe for concurrent use.
package lexical

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinKeywordRunes is the shortest token kept as a keyword.
const MinKeywordRunes = 4

var (
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*`)
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
)

// Lemmatizer reduces an inflected word to a base form.
type Lemmatizer interface {
	Lemma(word string) string
}

// Analyzer turns free text into query keywords. Construct it once and share it.
type Analyzer struct {
	stopwords  map[string]struct{}
	lemmatizer Lemmatizer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLemmatizer reduces Cyrillic tokens with l before they become keywords.
func WithLemmatizer(l Lemmatizer) Option {
	return func(a *Analyzer) {
		a.lemmatizer = l
	}
}

// WithStopwords adds words to the built-in stopword set.
func WithStopwords(words ...string) Option {
	return func(a *Analyzer) {
		for _, w := range words {
			a.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// NewAnalyzer creates an Analyzer with the built-in stopwords.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		stopwords: make(map[string]struct{}, len(defaultStopwords)),
	}
	for _, w := range defaultStopwords {
		a.stopwords[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Keywords returns the distinct keywords of text in first-occurrence order.
// A hyphenated token contributes its parts as a multi-word keyword and the
// plain concatenation ("wi-fi" gives "wi fi" and "wifi").
func (a *Analyzer) Keywords(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var out []string
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for _, tok := range wordPattern.FindAllString(lower, -1) {
		if strings.Contains(tok, "-") {
			parts := strings.Split(tok, "-")
			joined := strings.Join(parts, "")
			if utf8.RuneCountInString(joined) < MinKeywordRunes || a.IsStopword(joined) {
				continue
			}
			add(strings.Join(parts, " "))
			add(a.normalize(joined))
			continue
		}
		if utf8.RuneCountInString(tok) < MinKeywordRunes || a.IsStopword(tok) {
			continue
		}
		add(a.normalize(tok))
	}
	return out
}

// IsStopword reports whether the lowercase word is ignored as a keyword.
func (a *Analyzer) IsStopword(word string) bool {
	_, ok := a.stopwords[word]
	return ok
}

func (a *Analyzer) normalize(tok string) string {
	if a.lemmatizer == nil || !hasCyrillic(tok) {
		return tok
	}
	if lemma := a.lemmatizer.Lemma(tok); lemma != "" {
		return lemma
	}
	return tok
}

// Tokenize lowercases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// KeywordHits counts keywords present in text. A single-word keyword hits when
// it occurs anywhere in the text, which lets stems match inflected forms. A
// multi-word keyword hits only when every part is a whole token.
func KeywordHits(text string, keywords []string) int {
	if text == "" || len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	var tokens map[string]struct{}
	hits := 0
	for _, kw := range keywords {
		if !strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				hits++
			}
			continue
		}
		if tokens == nil {
			tokens = tokenSet(lower)
		}
		all := true
		for _, part := range strings.Fields(kw) {
			if _, ok := tokens[part]; !ok {
				all = false
				break
			}
		}
		if all {
			hits++
		}
	}
	return hits
}

// Numbers returns the literal numbers in text with decimal commas normalized
// to dots.
func Numbers(text string) []string {
	found := numberPattern.FindAllString(text, -1)
	for i, n := range found {
		found[i] = strings.ReplaceAll(n, ",", ".")
	}
	return found
}

// HasNumber reports whether text contains a digit.
func HasNumber(text string) bool {
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

func tokenSet(lower string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(lower) {
		set[t] = struct{}{}
	}
	return set
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}
