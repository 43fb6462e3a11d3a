package rag

import (
	"groundedkb/internal/config"
	"groundedkb/internal/llm"
)

// ErrorCode explains why Answer produced no regular answer.
// The zero value means success.
type ErrorCode string

const (
	CodeEmptyQuery            ErrorCode = "empty_query"
	CodeMissingEmbeddingModel ErrorCode = "missing_embedding_model"
	CodeMissingChatModel      ErrorCode = "missing_chat_model"
	CodeMissingAccessToken    ErrorCode = "missing_access_token"
	CodeEmbeddingFailed       ErrorCode = "embedding_failed"
	CodeCompletionFailed      ErrorCode = "completion_failed"
	CodeKBEmpty               ErrorCode = "kb_empty"
	CodeLowRelevance          ErrorCode = "low_relevance_context"
	CodeLowConfidence         ErrorCode = "low_confidence_context"
	CodeEmptyAnswer           ErrorCode = "empty_answer"
	CodeInternal              ErrorCode = "internal_error"
)

// IsRefusal reports whether the code is a deliberate refusal for lack of
// evidence rather than a failure.
func (c ErrorCode) IsRefusal() bool {
	switch c {
	case CodeKBEmpty, CodeLowRelevance, CodeLowConfidence:
		return true
	}
	return false
}

// Request is one user question.
type Request struct {
	// TenantID selects the knowledge base and tenant settings.
	TenantID string `json:"tenant_id"`
	// Query is the user's question.
	Query string `json:"query"`
	// DialogID enables follow-up handling when set.
	DialogID string `json:"dialog_id,omitempty"`
	// Audience is "staff" or "client". Anything else is treated as client.
	Audience string `json:"audience"`
	// FileIDs optionally restricts retrieval to these files.
	FileIDs []string `json:"file_ids,omitempty"`
	// Overrides are per-call settings layered over tenant settings.
	Overrides *config.CallOverrides `json:"overrides,omitempty"`
	// Debug returns the scored candidate pool in Usage.Debug.
	Debug bool `json:"debug,omitempty"`
}

// Result is the outcome of Answer. Answer is empty only for input and
// provider errors; refusals carry the refusal message and a code.
type Result struct {
	Answer    string    `json:"answer,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	Usage     Usage     `json:"usage"`
}

// Usage describes how an answer was produced.
type Usage struct {
	Tokens         llm.Usage `json:"tokens"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	ChatModel      string    `json:"chat_model,omitempty"`
	// Kind is the query classification.
	Kind string `json:"kind,omitempty"`
	// Followup is set when cached dialog context was used.
	Followup bool `json:"followup,omitempty"`
	// Reason repeats the error code on refusals.
	Reason ErrorCode `json:"reason,omitempty"`
	// Confidence is the gate assessment, when retrieval got that far.
	Confidence *Confidence `json:"confidence,omitempty"`
	// Sources are the cited chunks, unique per (file, chunk).
	Sources []SourceItem `json:"sources"`
	// LineRefs maps answer line indexes to indexes in Sources.
	LineRefs map[int][]int `json:"line_refs,omitempty"`
	Debug    *DebugInfo    `json:"debug,omitempty"`
}

// Anchor kinds, most specific first.
const (
	AnchorPage      = "page"
	AnchorTimestamp = "timestamp"
	AnchorChunk     = "chunk"
)

// SourceItem is one citation.
type SourceItem struct {
	FileID      string  `json:"file_id"`
	ChunkID     string  `json:"chunk_id"`
	FileName    string  `json:"file_name,omitempty"`
	Title       string  `json:"title,omitempty"`
	URL         string  `json:"url,omitempty"`
	AnchorKind  string  `json:"anchor_kind"`
	AnchorValue string  `json:"anchor_value"`
	Excerpt     string  `json:"excerpt"`
	Score       float64 `json:"score"`
}

// Confidence is the gate assessment over the top candidates.
type Confidence struct {
	Score    float64 `json:"score"`
	Evidence int     `json:"evidence"`
	Floor    float64 `json:"floor"`
	// Considered is the number of candidates the score was computed over.
	Considered int `json:"considered"`
}

// DebugInfo contains the scored candidate pool for evaluation.
type DebugInfo struct {
	Candidates []DebugCandidate `json:"candidates"`
}

// DebugCandidate is a candidate after reranking.
type DebugCandidate struct {
	Rank        int     `json:"rank"`
	ChunkID     string  `json:"chunk_id"`
	FileID      string  `json:"file_id"`
	Semantic    float64 `json:"semantic"`
	KeywordHits int     `json:"keyword_hits"`
	MetaHits    int     `json:"meta_hits"`
	Noise       bool    `json:"noise,omitempty"`
	Lexical     bool    `json:"lexical,omitempty"`
	Followup    bool    `json:"followup,omitempty"`
	Score       float64 `json:"score"`
}
