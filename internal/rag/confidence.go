package rag

import "groundedkb/internal/config"

// assessConfidence blends normalized semantic and lexical evidence over the
// top candidates with weights 1/(rank+1).
func assessConfidence(top []Candidate, floor float64, s config.Settings) Confidence {
	n := len(top)
	if s.ConfidenceWindow > 0 && n > s.ConfidenceWindow {
		n = s.ConfidenceWindow
	}

	var weighted, weights float64
	evidence := 0
	for i := 0; i < n; i++ {
		c := top[i]
		w := 1 / float64(i+1)

		sem := clamp01((c.Semantic - floor) / (1 - floor))
		lex := 0.0
		if s.LexicalCap > 0 {
			hits := c.KeywordHits + c.MetaHits
			if hits > s.LexicalCap {
				hits = s.LexicalCap
			}
			lex = float64(hits) / float64(s.LexicalCap)
		}

		weighted += w * (s.SemanticWeight*sem + (1-s.SemanticWeight)*lex)
		weights += w
		if c.KeywordHits > 0 || c.MetaHits > 0 {
			evidence++
		}
	}

	conf := Confidence{Evidence: evidence, Floor: floor, Considered: n}
	if weights > 0 {
		conf.Score = clamp01(weighted / weights)
	}
	return conf
}

// passes reports whether the gate lets composition proceed.
func (c Confidence) passes(s config.Settings) bool {
	if !s.StrictMode {
		return true
	}
	return c.Score >= s.ConfidenceMin && c.Evidence >= s.ConfidenceMinEvidence
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
