package rag

import (
	"regexp"
	"strings"

	"groundedkb/internal/lexical"
)

// QueryKind is the shape of a question. It selects the answer strategy.
type QueryKind int

const (
	KindGeneric QueryKind = iota
	KindGreeting
	KindNumericFact
	KindPersonEntity
)

func (k QueryKind) String() string {
	switch k {
	case KindGreeting:
		return "greeting"
	case KindNumericFact:
		return "numeric_fact"
	case KindPersonEntity:
		return "person_entity"
	default:
		return "generic"
	}
}

// Classification is the result of Classify.
type Classification struct {
	Kind QueryKind
	// Name holds the lowercase name tokens of a person/entity query.
	Name []string
}

var (
	greetings = map[string]struct{}{
		"hi": {}, "hello": {}, "hey": {}, "hi there": {}, "hello there": {},
		"good morning": {}, "good afternoon": {}, "good evening": {},
		"привет": {}, "здравствуйте": {}, "здравствуй": {}, "добрый день": {},
		"добрый вечер": {}, "доброе утро": {}, "салют": {},
	}

	entityPattern = regexp.MustCompile(`(?i)^(?:who\s+is|who\s+was|who's|tell\s+me\s+about|кто\s+такой|кто\s+такая|кто\s+такие|кто\s+это|расскажи\s+(?:о|об|про))\s+(.+)$`)

	// \b is ASCII-only in RE2, so word edges are spelled out for Cyrillic.
	numericPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:how\s+(?:much|many|long|old|far|heavy|often|tall|big)|what\s+(?:percent|percentage|price|weight|age)|сколько|какой\s+(?:вес|рост|возраст)|какая\s+(?:цена|стоимость))(?:$|[^\p{L}])`)

	unitPattern = regexp.MustCompile(`(?i)\d\s*(?:kg|g|km|m|cm|mm|%|years?|hours?|minutes?|min|sec|\$|usd|eur|rub|кг|км|м|см|лет|год|часов|минут|руб)(?:$|[^\p{L}])`)
)

// Classify returns the query kind. Greetings are recognised first, then
// person/entity phrasing, then numeric markers.
func Classify(query string) Classification {
	norm := strings.Join(lexical.Tokenize(query), " ")
	if _, ok := greetings[norm]; ok {
		return Classification{Kind: KindGreeting}
	}

	trimmed := strings.TrimRight(strings.TrimSpace(query), "?!.。 ")
	if m := entityPattern.FindStringSubmatch(trimmed); m != nil {
		if name := lexical.Tokenize(m[1]); len(name) > 0 {
			return Classification{Kind: KindPersonEntity, Name: name}
		}
	}

	if numericPattern.MatchString(query) || unitPattern.MatchString(query) {
		return Classification{Kind: KindNumericFact}
	}
	return Classification{Kind: KindGeneric}
}

// hasAllTokens reports whether every token occurs as a whole token in text.
func hasAllTokens(text string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	set := make(map[string]struct{})
	for _, t := range lexical.Tokenize(text) {
		set[t] = struct{}{}
	}
	for _, t := range tokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// hasAnyToken reports whether any token occurs as a whole token in text.
func hasAnyToken(text string, tokens []string) bool {
	set := make(map[string]struct{})
	for _, t := range lexical.Tokenize(text) {
		set[t] = struct{}{}
	}
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
