package rag

import (
	"strings"

	"groundedkb/internal/lexical"
)

// measureVerbs are stems of verbs that usually sit next to the number a
// numeric question asks for.
var measureVerbs = []string{
	"lift", "weigh", "cost", "price", "pay", "earn", "measur", "last", "take",
	"run", "ran", "grow", "reach", "hold", "rais", "lose", "gain", "score",
	"поднима", "подня", "вес", "стои", "плат", "длит", "занима", "проб", "набра",
}

// extractNumeric returns the evidence sentence that best answers a numeric
// question: it must contain a number and a query keyword, and a nearby
// measuring verb is preferred. Returns "" when no sentence qualifies.
func extractNumeric(seg *segmenter, used []Candidate, keywords []string) string {
	best := ""
	bestScore := 0
	for _, c := range used {
		for _, sentence := range seg.sentences(c.Chunk.Text) {
			if !lexical.HasNumber(sentence) {
				continue
			}
			hits := lexical.KeywordHits(sentence, keywords)
			if hits == 0 {
				continue
			}
			score := hits * 2
			if mentionsMeasureVerb(sentence) {
				score++
			}
			if score > bestScore {
				best, bestScore = sentence, score
			}
		}
	}
	return best
}

// extractBiography collects sentences naming the person from chunks that
// carry the full name.
func extractBiography(seg *segmenter, used []Candidate, name []string, limit int) string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range used {
		if !hasAllTokens(c.Chunk.Text, name) {
			continue
		}
		for _, sentence := range seg.sentences(c.Chunk.Text) {
			if len(out) >= limit {
				return strings.Join(out, " ")
			}
			if !hasAnyToken(sentence, name) {
				continue
			}
			if _, ok := seen[sentence]; ok {
				continue
			}
			seen[sentence] = struct{}{}
			out = append(out, sentence)
		}
	}
	return strings.Join(out, " ")
}

// numbersGrounded reports whether answer states at least one number and
// every number it states occurs in some used chunk.
func numbersGrounded(answer string, used []Candidate) bool {
	nums := lexical.Numbers(answer)
	if len(nums) == 0 {
		return false
	}
	return allIn(nums, evidenceNumbers(used))
}

// dropUngroundedNumbers removes the sentences of answer that state a number
// absent from the evidence. Returns "" when nothing remains.
func dropUngroundedNumbers(seg *segmenter, answer string, used []Candidate) string {
	have := evidenceNumbers(used)
	var lines []string
	for _, line := range seg.lines(answer) {
		var kept []string
		for _, sentence := range seg.sentences(line.Text) {
			if allIn(lexical.Numbers(sentence), have) {
				kept = append(kept, sentence)
			}
		}
		if len(kept) == 0 {
			continue
		}
		text := strings.Join(kept, " ")
		if line.Bullet {
			text = "- " + text
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func evidenceNumbers(used []Candidate) map[string]struct{} {
	have := make(map[string]struct{})
	for _, c := range used {
		for _, n := range lexical.Numbers(c.Chunk.Text) {
			have[n] = struct{}{}
		}
	}
	return have
}

func allIn(nums []string, have map[string]struct{}) bool {
	for _, n := range nums {
		if _, ok := have[n]; !ok {
			return false
		}
	}
	return true
}

func mentionsMeasureVerb(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, v := range measureVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
