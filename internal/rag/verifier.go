package rag

import (
	"sort"
	"strings"

	"groundedkb/internal/config"
	"groundedkb/internal/lexical"
)

// verification is the outcome of checking an answer against its evidence.
type verification struct {
	Text  string
	Kept  int
	Total int
	// FellBack is set when the answer was replaced by extracted facts.
	FellBack bool
	// Refused is set when nothing could be supported.
	Refused bool
}

// verifier keeps only sentences supported by the used chunks.
type verifier struct {
	analyzer *lexical.Analyzer
	seg      *segmenter
}

// verify drops unsupported sentences. A sentence is supported when a single
// chunk covers enough of its keywords and contains every number it states.
// When too few sentences survive the answer becomes a short list of facts
// taken from the evidence, or a refusal.
func (v *verifier) verify(answer string, used []Candidate, queryKeywords []string, s config.Settings) verification {
	var kept []string
	res := verification{}
	for _, line := range v.seg.lines(answer) {
		var survivors []string
		for _, sentence := range v.seg.sentences(line.Text) {
			res.Total++
			if v.supported(sentence, used, s) {
				survivors = append(survivors, sentence)
			}
		}
		if len(survivors) == 0 {
			continue
		}
		res.Kept += len(survivors)
		joined := strings.Join(survivors, " ")
		if line.Bullet {
			joined = "- " + joined
		}
		kept = append(kept, joined)
	}

	if res.Kept > 0 && float64(res.Kept)/float64(res.Total) >= s.AnswerCoverageMin {
		res.Text = strings.Join(kept, "\n")
		return res
	}

	facts := v.supportingFacts(used, queryKeywords, s.MaxFallbackFacts)
	if len(facts) == 0 {
		res.Refused = true
		res.Text = s.RefusalMessage
		return res
	}
	res.FellBack = true
	res.Text = "- " + strings.Join(facts, "\n- ")
	return res
}

// supported reports whether some chunk backs the sentence.
func (v *verifier) supported(sentence string, used []Candidate, s config.Settings) bool {
	kws := v.analyzer.Keywords(sentence)
	if len(kws) == 0 {
		return false
	}
	nums := lexical.Numbers(sentence)
	for _, c := range used {
		hits := lexical.KeywordHits(c.Chunk.Text+" "+c.Chunk.MetadataText(), kws)
		if float64(hits)/float64(len(kws)) < s.SentenceCoverageMin {
			continue
		}
		if containsNumbers(c.Chunk.Text, nums) {
			return true
		}
	}
	return false
}

// supportingFacts picks evidence sentences with the most query keyword hits.
// Ties keep chunk order.
func (v *verifier) supportingFacts(used []Candidate, queryKeywords []string, limit int) []string {
	type fact struct {
		text string
		hits int
	}
	var facts []fact
	seen := make(map[string]struct{})
	for _, c := range used {
		for _, sentence := range v.seg.sentences(c.Chunk.Text) {
			hits := lexical.KeywordHits(sentence, queryKeywords)
			if hits == 0 {
				continue
			}
			if _, ok := seen[sentence]; ok {
				continue
			}
			seen[sentence] = struct{}{}
			facts = append(facts, fact{text: sentence, hits: hits})
		}
	}

	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].hits > facts[j].hits
	})

	out := make([]string, 0, limit)
	for i := 0; i < len(facts) && i < limit; i++ {
		out = append(out, facts[i].text)
	}
	return out
}

// containsNumbers reports whether every number occurs literally in text.
func containsNumbers(text string, nums []string) bool {
	if len(nums) == 0 {
		return true
	}
	have := make(map[string]struct{})
	for _, n := range lexical.Numbers(text) {
		have[n] = struct{}{}
	}
	for _, n := range nums {
		if _, ok := have[n]; !ok {
			return false
		}
	}
	return true
}
