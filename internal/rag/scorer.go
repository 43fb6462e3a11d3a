package rag

import (
	"sort"

	"groundedkb/internal/config"
	"groundedkb/internal/lexical"
)

// floorWindow is how many top candidates are checked for metadata hits
// when choosing the score floor.
const floorWindow = 20

// scoreCandidates computes hits, noise and the final score of every
// candidate, sorts by score (ties keep retrieval order) and drops repeated
// chunks, keeping the best-scored occurrence.
func scoreCandidates(cands []Candidate, keywords []string, s config.Settings) []Candidate {
	scored := make([]Candidate, len(cands))
	for i, c := range cands {
		c.KeywordHits = lexical.KeywordHits(c.Chunk.Text, keywords)
		c.MetaHits = lexical.KeywordHits(c.Chunk.MetadataText(), keywords)
		c.Noise = lexical.LooksLikeNoise(c.Chunk.Text, s.NoiseMarkers)
		c.Score = finalScore(c, s)
		scored[i] = c
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	seen := make(map[string]struct{}, len(scored))
	out := scored[:0]
	for _, c := range scored {
		if _, ok := seen[c.Chunk.ID]; ok {
			continue
		}
		seen[c.Chunk.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func finalScore(c Candidate, s config.Settings) float64 {
	score := c.Semantic
	if c.KeywordHits > 0 {
		score += s.LexBoost
	}
	if c.MetaHits > 0 {
		score += s.MetaLexBoost
	}
	if c.Noise {
		score -= s.NoisePenalty
	}
	return score
}

// scoreFloor relaxes MinScore when a top candidate matches on metadata.
func scoreFloor(sorted []Candidate, s config.Settings) float64 {
	for i := 0; i < len(sorted) && i < floorWindow; i++ {
		if sorted[i].MetaHits > 0 {
			return s.MinScore * s.MetaFloorFactor
		}
	}
	return s.MinScore
}

// filterCandidates drops candidates below the floor and, for numeric
// questions, candidates without enough keyword support.
func filterCandidates(sorted []Candidate, floor float64, kind QueryKind, s config.Settings) []Candidate {
	var out []Candidate
	for _, c := range sorted {
		if c.Score < floor {
			continue
		}
		if kind == KindNumericFact && c.KeywordHits+c.MetaHits < s.NumericMinHits {
			continue
		}
		out = append(out, c)
	}
	return out
}

// rerank picks the final top K. It rewards the opening chunk of a file and
// file diversity in the first positions, and for person/entity questions
// rewards candidates naming the person and penalizes the rest. When some
// candidate carries the full name, candidates without it are dropped.
func rerank(cands []Candidate, cls Classification, s config.Settings) []Candidate {
	if cls.Kind == KindPersonEntity && len(cls.Name) > 0 {
		var named []Candidate
		for _, c := range cands {
			if mentionsAll(c, cls.Name) {
				named = append(named, c)
			}
		}
		if len(named) > 0 {
			cands = named
		}
	}

	adjusted := make([]float64, len(cands))
	for i, c := range cands {
		adj := c.Score
		if c.Chunk.ChunkIndex == 0 {
			adj += s.FirstPositionBonus
		}
		if cls.Kind == KindPersonEntity && len(cls.Name) > 0 {
			switch {
			case mentionsAll(c, cls.Name):
				adj += s.EntityBonus
			case !hasAnyToken(c.Chunk.Text+" "+c.Chunk.MetadataText(), cls.Name):
				adj -= s.EntityPenalty
			}
		}
		adjusted[i] = adj
	}

	// Greedy selection: inside the diversity window a file not yet picked
	// earns a bonus. Ties keep the incoming order.
	picked := make([]bool, len(cands))
	seenFiles := make(map[string]struct{})
	var out []Candidate
	for len(out) < s.TopK && len(out) < len(cands) {
		best := -1
		bestScore := 0.0
		for i, c := range cands {
			if picked[i] {
				continue
			}
			score := adjusted[i]
			if len(out) < s.DiversityWindow {
				if _, ok := seenFiles[c.Chunk.FileID]; !ok {
					score += s.DiversityBonus
				}
			}
			if best == -1 || score > bestScore {
				best, bestScore = i, score
			}
		}
		picked[best] = true
		seenFiles[cands[best].Chunk.FileID] = struct{}{}
		out = append(out, cands[best])
	}
	return out
}

func mentionsAll(c Candidate, name []string) bool {
	return hasAllTokens(c.Chunk.Text, name) || hasAllTokens(c.Chunk.MetadataText(), name)
}
