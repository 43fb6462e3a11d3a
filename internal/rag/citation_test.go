package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundedkb/internal/config"
	"groundedkb/internal/lexical"
	"groundedkb/internal/storage"
)

func TestBuildSources(t *testing.T) {
	analyzer := lexical.NewAnalyzer()
	s := config.DefaultSettings()

	ivan := Candidate{Chunk: storage.ChunkRecord{ID: "a", FileID: "f1", FileName: "training.md", Text: "Ivan lifts 180 kg confidently."}, Score: 0.9}
	ivanAgain := ivan
	ivanAgain.Score = 0.5
	bananas := Candidate{Chunk: storage.ChunkRecord{ID: "b", FileID: "f2", FileName: "food.md", Text: "Bananas are rich in potassium."}, Score: 0.95}

	t.Run("unsupported chunks are left out and duplicates merged", func(t *testing.T) {
		sources, refs := buildSources(analyzer, "Ivan lifts 180 kg.", []Candidate{bananas, ivan, ivanAgain}, s)
		require.Len(t, sources, 1)
		assert.Equal(t, "a", sources[0].ChunkID)
		assert.Equal(t, "f1", sources[0].FileID)
		assert.InDelta(t, 0.9, sources[0].Score, 1e-9)
		assert.Nil(t, refs)
	})

	t.Run("no support keeps every chunk", func(t *testing.T) {
		sources, _ := buildSources(analyzer, "Something unrelated entirely.", []Candidate{ivan, bananas, ivanAgain}, s)
		var got []string
		for _, src := range sources {
			got = append(got, src.ChunkID)
		}
		assert.Equal(t, []string{"b", "a"}, got)
	})

	t.Run("empty evidence", func(t *testing.T) {
		sources, _ := buildSources(analyzer, "Anything.", nil, s)
		assert.NotNil(t, sources)
		assert.Empty(t, sources)
	})

	t.Run("line refs", func(t *testing.T) {
		s := s
		s.LineRefs = true
		sources, refs := buildSources(analyzer, "Ivan lifts 180 kg.\nBananas are rich.", []Candidate{ivan, bananas}, s)
		require.Len(t, sources, 2)
		assert.Equal(t, "b", sources[0].ChunkID)
		assert.Equal(t, map[int][]int{0: {1}, 1: {0}}, refs)
	})
}

func TestAnchor(t *testing.T) {
	page := 4
	short := 75.0
	long := 3725.0

	tests := []struct {
		name      string
		chunk     storage.ChunkRecord
		wantKind  string
		wantValue string
	}{
		{name: "page wins", chunk: storage.ChunkRecord{Page: &page, StartSec: &short}, wantKind: AnchorPage, wantValue: "4"},
		{name: "timestamp", chunk: storage.ChunkRecord{StartSec: &short}, wantKind: AnchorTimestamp, wantValue: "1:15"},
		{name: "long timestamp", chunk: storage.ChunkRecord{StartSec: &long}, wantKind: AnchorTimestamp, wantValue: "1:02:05"},
		{name: "chunk index", chunk: storage.ChunkRecord{ChunkIndex: 3}, wantKind: AnchorChunk, wantValue: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, value := anchor(Candidate{Chunk: tt.chunk})
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", excerpt("  short\n text ", 240))
	assert.Equal(t, "word word word word...", excerpt(strings.Repeat("word ", 100), 20))
	assert.Equal(t, "абвгд...", excerpt("абвгдежзий", 5))
}
