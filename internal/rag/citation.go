package rag

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"groundedkb/internal/config"
	"groundedkb/internal/lexical"
)

// buildSources turns the used chunks into citations ordered by how well they
// support the final answer. Chunks sharing no keyword with the answer are
// left out unless none does. With LineRefs enabled it also maps every answer
// line to its best supporting sources.
func buildSources(analyzer *lexical.Analyzer, answer string, used []Candidate, s config.Settings) ([]SourceItem, map[int][]int) {
	answerKeywords := analyzer.Keywords(answer)

	type ranked struct {
		c    Candidate
		hits int
	}
	rs := make([]ranked, 0, len(used))
	supported := false
	for _, c := range used {
		hits := lexical.KeywordHits(c.Chunk.Text+" "+c.Chunk.MetadataText(), answerKeywords)
		if hits > 0 {
			supported = true
		}
		rs = append(rs, ranked{c: c, hits: hits})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].hits != rs[j].hits {
			return rs[i].hits > rs[j].hits
		}
		return rs[i].c.Score > rs[j].c.Score
	})

	type key struct{ file, chunk string }
	seen := make(map[key]struct{}, len(rs))
	sources := []SourceItem{}
	var cited []Candidate
	for _, r := range rs {
		if supported && r.hits == 0 {
			continue
		}
		k := key{r.c.Chunk.FileID, r.c.Chunk.ID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sources = append(sources, sourceItem(r.c, s.ExcerptChars))
		cited = append(cited, r.c)
	}

	if !s.LineRefs {
		return sources, nil
	}
	return sources, lineRefs(analyzer, answer, cited, s.MaxLineRefs)
}

// lineRefs maps answer line indexes to the best supporting citations.
func lineRefs(analyzer *lexical.Analyzer, answer string, cited []Candidate, perLine int) map[int][]int {
	refs := make(map[int][]int)
	for i, line := range strings.Split(answer, "\n") {
		kws := analyzer.Keywords(line)
		if len(kws) == 0 {
			continue
		}
		type hit struct{ idx, hits int }
		var hs []hit
		for j, c := range cited {
			if h := lexical.KeywordHits(c.Chunk.Text+" "+c.Chunk.MetadataText(), kws); h > 0 {
				hs = append(hs, hit{j, h})
			}
		}
		sort.SliceStable(hs, func(a, b int) bool { return hs[a].hits > hs[b].hits })
		for k := 0; k < len(hs) && k < perLine; k++ {
			refs[i] = append(refs[i], hs[k].idx)
		}
	}
	return refs
}

func sourceItem(c Candidate, excerptChars int) SourceItem {
	kind, value := anchor(c)
	return SourceItem{
		FileID:      c.Chunk.FileID,
		ChunkID:     c.Chunk.ID,
		FileName:    c.Chunk.FileName,
		Title:       c.Chunk.Title,
		URL:         c.Chunk.URL,
		AnchorKind:  kind,
		AnchorValue: value,
		Excerpt:     excerpt(c.Chunk.Text, excerptChars),
		Score:       c.Score,
	}
}

// anchor picks the most specific position: page, then timestamp, then
// chunk index.
func anchor(c Candidate) (string, string) {
	switch {
	case c.Chunk.Page != nil:
		return AnchorPage, strconv.Itoa(*c.Chunk.Page)
	case c.Chunk.StartSec != nil:
		return AnchorTimestamp, formatTimestamp(*c.Chunk.StartSec)
	}
	return AnchorChunk, strconv.Itoa(c.Chunk.ChunkIndex)
}

func formatTimestamp(sec float64) string {
	total := int(sec)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// excerpt shortens text to about n characters, cutting at a word boundary.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	cut := truncateRunes(text, n)
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
