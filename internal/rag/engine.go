package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_providers.go -package=mocks groundedkb/internal/rag Embedder,ChatCompleter,TokenSource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"groundedkb/internal/config"
	"groundedkb/internal/contextutil"
	"groundedkb/internal/lexical"
	"groundedkb/internal/llm"
	"groundedkb/internal/storage"
	"groundedkb/internal/vectorstore"
)

// Engine answers questions from a tenant's knowledge base.
type Engine interface {
	// Answer never returns a Go error: failures and refusals are reported
	// through Result.ErrorCode.
	Answer(ctx context.Context, req Request) Result
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, req llm.EmbedRequest) (llm.EmbedResponse, error)
}

// ChatCompleter runs chat completions.
type ChatCompleter interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)
}

// TokenSource provides the provider access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Refresh forces a new token after the provider rejected the old one.
	Refresh(ctx context.Context) (string, error)
}

// SettingsSource returns per-tenant overrides, or nil.
type SettingsSource interface {
	ForTenant(tenantID string) *config.Overrides
}

// Deps are the collaborators of the engine. Vectors and Tenants are optional.
type Deps struct {
	Embedder Embedder
	Chat     ChatCompleter
	Tokens   TokenSource
	Chunks   storage.ChunkStore
	Dialogs  storage.DialogCacheStore
	Vectors  vectorstore.VectorStore
	Tenants  SettingsSource
	Analyzer *lexical.Analyzer
	Defaults config.Settings
}

// engine implements the Engine interface.
type engine struct {
	embedder  Embedder
	chat      ChatCompleter
	tokens    TokenSource
	dialogs   storage.DialogCacheStore
	tenants   SettingsSource
	analyzer  *lexical.Analyzer
	defaults  config.Settings
	retriever *retriever
	verifier  *verifier
	seg       *segmenter
}

// NewEngine creates a new answer engine.
func NewEngine(d Deps) Engine {
	analyzer := d.Analyzer
	if analyzer == nil {
		analyzer = lexical.NewAnalyzer()
	}
	seg := newSegmenter()
	return &engine{
		embedder:  d.Embedder,
		chat:      d.Chat,
		tokens:    d.Tokens,
		dialogs:   d.Dialogs,
		tenants:   d.Tenants,
		analyzer:  analyzer,
		defaults:  d.Defaults,
		retriever: &retriever{vectors: d.Vectors, chunks: d.Chunks},
		verifier:  &verifier{analyzer: analyzer, seg: seg},
		seg:       seg,
	}
}

// turn is the state of one Answer call.
type turn struct {
	req      Request
	settings config.Settings
	cls      Classification
	query    string
	keywords []string
	token    string
	pending  retrieval
	used     []Candidate
	usage    *Usage
}

// Answer implements Engine.
func (e *engine) Answer(ctx context.Context, req Request) (res Result) {
	logger := contextutil.LoggerFromContext(ctx).With("tenant_id", req.TenantID, "dialog_id", req.DialogID)
	ctx = contextutil.WithLogger(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "answer panicked", "panic", fmt.Sprint(r))
			res = Result{ErrorCode: CodeInternal, Usage: Usage{Sources: []SourceItem{}}}
		}
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Result{ErrorCode: CodeEmptyQuery, Usage: Usage{Sources: []SourceItem{}}}
	}

	s := e.resolveSettings(ctx, req)
	cls := Classify(query)
	usage := &Usage{
		EmbeddingModel: s.EmbeddingModel,
		ChatModel:      s.ChatModel,
		Kind:           cls.Kind.String(),
		Sources:        []SourceItem{},
	}
	t := &turn{req: req, settings: s, cls: cls, query: query, usage: usage}

	logger.InfoContext(ctx, "answer started", "kind", usage.Kind, "query_length", len(query))

	strat := strategies[cls.Kind]
	if !strat.retrieval {
		answer, _ := strat.compose(e, ctx, t)
		return Result{Answer: answer, Usage: *usage}
	}

	if code := e.prepare(ctx, t); code != "" {
		return e.fail(ctx, t, code)
	}

	code := e.collectEvidence(ctx, t)
	if code != "" {
		return e.fail(ctx, t, code)
	}

	answer, code := strat.compose(e, ctx, t)
	if code != "" {
		return e.fail(ctx, t, code)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return e.fail(ctx, t, CodeEmptyAnswer)
	}

	if s.StrictMode {
		v := e.verifier.verify(answer, t.used, t.keywords, s)
		logger.DebugContext(ctx, "answer verified", "kept", v.Kept, "total", v.Total, "fell_back", v.FellBack)
		if v.Refused {
			return e.fail(ctx, t, CodeLowConfidence)
		}
		answer = v.Text
	}
	answer = e.restyle(ctx, t, answer)

	usage.Sources, usage.LineRefs = buildSources(e.analyzer, answer, t.used, s)
	saveDialogCache(ctx, e.dialogs, req.DialogID, s.EmbeddingModel, t.used, t.keywords, s.DialogCacheChunks, s.DialogCacheKeywords)

	logger.InfoContext(ctx, "answer completed",
		"sources", len(usage.Sources),
		"answer_length", len(answer),
		"total_tokens", usage.Tokens.TotalTokens,
	)
	return Result{Answer: answer, Usage: *usage}
}

// resolveSettings layers tenant and per-call overrides over the defaults.
// An invalid layer is logged and skipped.
func (e *engine) resolveSettings(ctx context.Context, req Request) config.Settings {
	logger := contextutil.LoggerFromContext(ctx)

	var tenant *config.Overrides
	if e.tenants != nil {
		tenant = e.tenants.ForTenant(req.TenantID)
	}

	s, err := config.Resolve(e.defaults, tenant, req.Overrides.Layer())
	if err == nil {
		return s
	}
	logger.WarnContext(ctx, "invalid per-call settings, ignoring overrides", "error", err)

	s, err = config.Resolve(e.defaults, tenant)
	if err == nil {
		return s
	}
	logger.WarnContext(ctx, "invalid tenant settings, using defaults", "error", err)
	return e.defaults
}

// prepare checks configuration, extracts keywords, applies the dialog cache
// and embeds the query.
func (e *engine) prepare(ctx context.Context, t *turn) ErrorCode {
	logger := contextutil.LoggerFromContext(ctx)
	s := t.settings

	switch {
	case s.EmbeddingModel == "":
		return CodeMissingEmbeddingModel
	case s.ChatModel == "":
		return CodeMissingChatModel
	}
	token, err := e.tokens.Token(ctx)
	if err != nil || token == "" {
		logger.WarnContext(ctx, "no access token", "error", err)
		return CodeMissingAccessToken
	}
	t.token = token

	t.keywords = e.analyzer.Keywords(t.query)
	embedText := t.query

	var followupIDs []string
	var cache *storage.DialogCache
	if isFollowup(t.query) {
		cache = loadDialogCache(ctx, e.dialogs, t.req.DialogID, s.EmbeddingModel)
	}
	if cache != nil {
		t.usage.Followup = true
		t.keywords = mergeKeywords(t.keywords, cache.Keywords)
		if len(cache.Keywords) > 0 {
			embedText = t.query + " " + strings.Join(cache.Keywords, " ")
		}
		followupIDs = cache.ChunkIDs
		logger.DebugContext(ctx, "follow-up turn", "cached_chunks", len(cache.ChunkIDs), "cached_keywords", len(cache.Keywords))
	}

	vector, err := e.embed(ctx, t, embedText)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return CodeEmbeddingFailed
	}

	t.pending = retrieval{
		filter: storage.ChunkFilter{
			TenantID:  t.req.TenantID,
			Audiences: storage.VisibleAudiences(t.req.Audience),
			ModelID:   s.EmbeddingModel,
			FileIDs:   t.req.FileIDs,
			ScanLimit: s.FallbackScanLimit,
		},
		vector:      vector,
		keywords:    t.keywords,
		followupIDs: followupIDs,
	}
	return ""
}

// collectEvidence retrieves, scores and reranks candidates and applies the
// confidence gate. On success t.used holds the final top K.
func (e *engine) collectEvidence(ctx context.Context, t *turn) ErrorCode {
	logger := contextutil.LoggerFromContext(ctx)
	s := t.settings

	cands := e.retriever.retrieve(ctx, t.pending, s)
	if len(cands) == 0 {
		n, err := e.retriever.chunks.CountIndexed(ctx, t.pending.filter)
		if err != nil {
			logger.WarnContext(ctx, "failed to count indexed chunks", "error", err)
			return CodeLowRelevance
		}
		if n == 0 {
			return CodeKBEmpty
		}
		return CodeLowRelevance
	}

	sorted := scoreCandidates(cands, t.keywords, s)
	floor := scoreFloor(sorted, s)
	filtered := filterCandidates(sorted, floor, t.cls.Kind, s)
	top := rerank(filtered, t.cls, s)
	if t.req.Debug {
		t.usage.Debug = debugInfo(top)
	}
	logger.DebugContext(ctx, "candidates scored",
		"retrieved", len(cands),
		"unique", len(sorted),
		"above_floor", len(filtered),
		"floor", floor,
	)
	if len(top) == 0 {
		return CodeLowRelevance
	}

	conf := assessConfidence(top, floor, s)
	t.usage.Confidence = &conf
	if !conf.passes(s) {
		logger.InfoContext(ctx, "confidence gate refused", "confidence", conf.Score, "evidence", conf.Evidence)
		return CodeLowConfidence
	}

	t.used = top
	return ""
}

// embed embeds one text with the turn's token.
func (e *engine) embed(ctx context.Context, t *turn, text string) ([]float32, error) {
	s := t.settings
	var resp llm.EmbedResponse
	err := e.withToken(ctx, t, func(ctx context.Context, token string) error {
		var err error
		resp, err = e.embedder.Embed(ctx, llm.EmbedRequest{
			Model:   s.EmbeddingModel,
			APIBase: s.EmbeddingAPIBase,
			Token:   token,
			Texts:   []string{text},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	t.usage.Tokens = t.usage.Tokens.Add(resp.Usage)
	if len(resp.Vectors) != 1 || len(resp.Vectors[0]) == 0 {
		return nil, fmt.Errorf("expected one embedding, got %d", len(resp.Vectors))
	}
	return resp.Vectors[0], nil
}

// withToken runs a provider call under the provider timeout. When the
// provider rejects the token, the token is refreshed and the call retried
// exactly once.
func (e *engine) withToken(ctx context.Context, t *turn, call func(ctx context.Context, token string) error) error {
	err := e.callWithTimeout(ctx, t, call)
	if !errors.Is(err, llm.ErrUnauthorized) {
		return err
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "provider rejected token, refreshing")
	token, rerr := e.tokens.Refresh(ctx)
	if rerr != nil {
		return fmt.Errorf("%w (refresh failed: %v)", err, rerr)
	}
	t.token = token
	return e.callWithTimeout(ctx, t, call)
}

func (e *engine) callWithTimeout(ctx context.Context, t *turn, call func(ctx context.Context, token string) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.settings.ProviderTimeout)
	defer cancel()
	return call(ctx, t.token)
}

// fail builds the result for an error code. Refusals carry the refusal
// message and never any sources.
func (e *engine) fail(ctx context.Context, t *turn, code ErrorCode) Result {
	usage := *t.usage
	usage.Sources = []SourceItem{}
	usage.LineRefs = nil

	res := Result{ErrorCode: code, Usage: usage}
	if code.IsRefusal() {
		res.Answer = t.settings.RefusalMessage
		res.Usage.Reason = code
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "answer refused", "reason", code)
		return res
	}
	contextutil.LoggerFromContext(ctx).WarnContext(ctx, "answer failed", "code", code)
	return res
}

func debugInfo(top []Candidate) *DebugInfo {
	info := &DebugInfo{Candidates: make([]DebugCandidate, 0, len(top))}
	for i, c := range top {
		info.Candidates = append(info.Candidates, DebugCandidate{
			Rank:        i + 1,
			ChunkID:     c.Chunk.ID,
			FileID:      c.Chunk.FileID,
			Semantic:    c.Semantic,
			KeywordHits: c.KeywordHits,
			MetaHits:    c.MetaHits,
			Noise:       c.Noise,
			Lexical:     c.Lexical,
			Followup:    c.Followup,
			Score:       c.Score,
		})
	}
	return info
}
