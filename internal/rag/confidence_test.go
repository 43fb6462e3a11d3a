package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"groundedkb/internal/config"
)

func TestAssessConfidence(t *testing.T) {
	s := config.DefaultSettings()

	t.Run("weak single chunk refuses", func(t *testing.T) {
		top := []Candidate{{Semantic: 0.26, KeywordHits: 1}}
		conf := assessConfidence(top, s.MinScore, s)
		assert.InDelta(t, 0.6*(0.01/0.75)+0.4*(1.0/3), conf.Score, 1e-9)
		assert.Equal(t, 1, conf.Evidence)
		assert.False(t, conf.passes(s))
	})

	t.Run("strong chunk passes", func(t *testing.T) {
		top := []Candidate{{Semantic: 0.8, KeywordHits: 2}}
		conf := assessConfidence(top, s.MinScore, s)
		assert.Greater(t, conf.Score, s.ConfidenceMin)
		assert.True(t, conf.passes(s))
	})

	t.Run("no lexical evidence fails evidence minimum", func(t *testing.T) {
		top := []Candidate{{Semantic: 1}, {Semantic: 1}}
		conf := assessConfidence(top, s.MinScore, s)
		assert.Equal(t, 0, conf.Evidence)
		assert.False(t, conf.passes(s))

		lenient := s
		lenient.StrictMode = false
		assert.True(t, conf.passes(lenient))
	})

	t.Run("window and weights", func(t *testing.T) {
		top := make([]Candidate, 10)
		for i := range top {
			top[i] = Candidate{Semantic: 1, KeywordHits: 3}
		}
		conf := assessConfidence(top, s.MinScore, s)
		assert.Equal(t, s.ConfidenceWindow, conf.Considered)
		assert.InDelta(t, 1.0, conf.Score, 1e-9)
		assert.Equal(t, s.ConfidenceWindow, conf.Evidence)
	})

	t.Run("empty", func(t *testing.T) {
		conf := assessConfidence(nil, s.MinScore, s)
		assert.Zero(t, conf.Score)
		assert.False(t, conf.passes(s))
	})
}
