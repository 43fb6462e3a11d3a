package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"groundedkb/internal/config"
	"groundedkb/internal/lexical"
	"groundedkb/internal/storage"
)

func newTestVerifier() *verifier {
	return &verifier{analyzer: lexical.NewAnalyzer(), seg: newSegmenter()}
}

func ivanEvidence() []Candidate {
	return []Candidate{{
		Chunk: storage.ChunkRecord{ID: "a", FileID: "f1", FileName: "training.md", Text: "Ivan lifts 180 kilograms confidently."},
		Score: 0.9,
	}}
}

func TestVerifier_Verify(t *testing.T) {
	s := config.DefaultSettings()
	v := newTestVerifier()
	queryKeywords := []string{"ivan", "lift"}

	tests := []struct {
		name     string
		answer   string
		keywords []string
		want     verification
	}{
		{
			name:   "fully supported",
			answer: "Ivan lifts 180 kilograms.",
			want:   verification{Text: "Ivan lifts 180 kilograms.", Kept: 1, Total: 1},
		},
		{
			name:   "unsupported sentence dropped",
			answer: "Ivan lifts 180 kilograms. Ivan also swims daily in the lake.",
			want:   verification{Text: "Ivan lifts 180 kilograms.", Kept: 1, Total: 2},
		},
		{
			name:   "bullets keep their marker",
			answer: "- Ivan lifts 180 kilograms.\n- Bananas are yellow.",
			want:   verification{Text: "- Ivan lifts 180 kilograms.", Kept: 1, Total: 2},
		},
		{
			name:   "code blocks are dropped",
			answer: "Ivan lifts 180 kilograms.\n\n```\nrm -rf /\n```\n",
			want:   verification{Text: "Ivan lifts 180 kilograms.", Kept: 1, Total: 1},
		},
		{
			name:   "wrong number falls back to evidence",
			answer: "Ivan lifts 200 kilograms.",
			want:   verification{Text: "- Ivan lifts 180 kilograms confidently.", Kept: 0, Total: 1, FellBack: true},
		},
		{
			name:     "nothing to fall back on",
			answer:   "Bananas are yellow.",
			keywords: []string{"zebra"},
			want:     verification{Text: s.RefusalMessage, Kept: 0, Total: 1, Refused: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kws := tt.keywords
			if kws == nil {
				kws = queryKeywords
			}
			assert.Equal(t, tt.want, v.verify(tt.answer, ivanEvidence(), kws, s))
		})
	}
}

func TestContainsNumbers(t *testing.T) {
	assert.True(t, containsNumbers("costs 12,5 EUR", []string{"12.5"}))
	assert.True(t, containsNumbers("no numbers", nil))
	assert.False(t, containsNumbers("lifts 180 kg", []string{"180", "200"}))
}

func TestExtractNumeric(t *testing.T) {
	used := []Candidate{
		{Chunk: storage.ChunkRecord{Text: "Ivan trained for 3 years. Ivan lifts 180 kilograms. Bananas cost 2 euros."}},
	}
	got := extractNumeric(newSegmenter(), used, []string{"ivan", "lift"})
	assert.Equal(t, "Ivan lifts 180 kilograms.", got)

	assert.Empty(t, extractNumeric(newSegmenter(), used, []string{"zebra"}))
}

func TestExtractBiography(t *testing.T) {
	used := []Candidate{
		{Chunk: storage.ChunkRecord{Text: "The Doe family lawyer was present."}},
		{Chunk: storage.ChunkRecord{Text: "Jane Doe was born in 1990. She works as an engineer. Jane leads the platform team."}},
	}
	got := extractBiography(newSegmenter(), used, []string{"jane", "doe"}, 3)
	assert.Equal(t, "Jane Doe was born in 1990. Jane leads the platform team.", got)
}

func TestNumbersGrounded(t *testing.T) {
	used := ivanEvidence()
	assert.True(t, numbersGrounded("He lifts 180 kilograms.", used))
	assert.False(t, numbersGrounded("He lifts 200 kilograms.", used))
	assert.False(t, numbersGrounded("He lifts a lot.", used))
}

func TestDropUngroundedNumbers(t *testing.T) {
	seg := newSegmenter()
	used := ivanEvidence()

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{name: "grounded number kept", answer: "Ivan lifts 180 kilograms.", want: "Ivan lifts 180 kilograms."},
		{name: "no numbers kept", answer: "Ivan trains hard.", want: "Ivan trains hard."},
		{name: "invented number dropped", answer: "Ivan trains hard. He lifts 250 kilograms.", want: "Ivan trains hard."},
		{name: "bullets keep their marker", answer: "- Lifts 180 kilograms\n- Lifts 300 kilograms", want: "- Lifts 180 kilograms"},
		{name: "nothing grounded", answer: "Ivan lifts 250 kilograms.", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dropUngroundedNumbers(seg, tt.answer, used))
		})
	}
}
