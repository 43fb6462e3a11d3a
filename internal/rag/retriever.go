package rag

import (
	"context"
	"sort"
	"unicode/utf8"

	"groundedkb/internal/config"
	"groundedkb/internal/contextutil"
	"groundedkb/internal/storage"
	"groundedkb/internal/vectorstore"
)

// maxRecallKeywords bounds the keywords used by the lexical recall pass.
const maxRecallKeywords = 6

// Candidate is a chunk competing for a place in the answer context.
type Candidate struct {
	Chunk storage.ChunkRecord
	// Semantic is the cosine similarity, or a synthetic score for lexical
	// recall and follow-up injections.
	Semantic float64
	// Lexical marks candidates found by the lexical recall pass.
	Lexical bool
	// Followup marks chunks re-injected from the dialog cache.
	Followup bool

	KeywordHits int
	MetaHits    int
	Noise       bool
	Score       float64
}

// retrieval is the input of one retrieval run.
type retrieval struct {
	filter      storage.ChunkFilter
	vector      []float32
	keywords    []string
	followupIDs []string
}

// retriever gathers candidates from the vector index (or the fallback scan),
// the lexical recall pass and the dialog cache.
type retriever struct {
	vectors vectorstore.VectorStore
	chunks  storage.ChunkStore
}

// retrieve returns candidates in retrieval order. Store failures are logged
// and the failing pass contributes nothing.
func (r *retriever) retrieve(ctx context.Context, in retrieval, s config.Settings) []Candidate {
	logger := contextutil.LoggerFromContext(ctx)
	pool := s.PoolSize()

	var out []Candidate
	out = append(out, r.nearest(ctx, in, pool)...)

	if kws := recallKeywords(in.keywords); len(kws) > 0 {
		chunks, err := r.chunks.SearchText(ctx, in.filter, kws, pool)
		if err != nil {
			logger.WarnContext(ctx, "lexical recall failed", "error", err)
		}
		for _, c := range chunks {
			out = append(out, Candidate{Chunk: c, Semantic: s.LexicalRecallScore, Lexical: true})
		}
	}

	if len(in.followupIDs) > 0 {
		chunks, err := r.chunks.GetByIDs(ctx, in.filter, in.followupIDs)
		if err != nil {
			logger.WarnContext(ctx, "failed to load follow-up chunks", "error", err)
		}
		for _, c := range chunks {
			out = append(out, Candidate{Chunk: c, Semantic: s.FollowupScore, Followup: true})
		}
	}

	logger.DebugContext(ctx, "retrieval completed", "candidates", len(out), "pool", pool)
	return out
}

// nearest asks the vector index and falls back to the in-process scan when
// no index is configured or the index fails.
func (r *retriever) nearest(ctx context.Context, in retrieval, pool int) []Candidate {
	logger := contextutil.LoggerFromContext(ctx)

	if r.vectors != nil {
		results, err := r.vectors.Search(ctx, vectorstore.SearchRequest{
			TenantID:  in.filter.TenantID,
			Audiences: in.filter.Audiences,
			ModelID:   in.filter.ModelID,
			FileIDs:   in.filter.FileIDs,
			Vector:    in.vector,
			Limit:     pool,
		})
		if err == nil {
			out := make([]Candidate, 0, len(results))
			for _, res := range results {
				out = append(out, Candidate{Chunk: res.Chunk, Semantic: res.Score})
			}
			return out
		}
		logger.WarnContext(ctx, "vector index search failed, falling back to scan", "error", err)
	}

	scored, err := r.chunks.ScanNearest(ctx, in.filter, in.vector, pool)
	if err != nil {
		logger.ErrorContext(ctx, "embedding scan failed", "error", err)
		return nil
	}
	out := make([]Candidate, 0, len(scored))
	for _, sc := range scored {
		out = append(out, Candidate{Chunk: sc.Chunk, Semantic: sc.Score})
	}
	return out
}

// recallKeywords picks the longest keywords; ties keep query order.
func recallKeywords(keywords []string) []string {
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if utf8.RuneCountInString(kw) >= 4 {
			kws = append(kws, kw)
		}
	}
	sort.SliceStable(kws, func(i, j int) bool {
		return utf8.RuneCountInString(kws[i]) > utf8.RuneCountInString(kws[j])
	})
	if len(kws) > maxRecallKeywords {
		kws = kws[:maxRecallKeywords]
	}
	return kws
}
