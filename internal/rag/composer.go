package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"groundedkb/internal/contextutil"
	"groundedkb/internal/llm"
)

const systemPrompt = "You answer questions strictly from the numbered context fragments provided by the user. " +
	"Use only facts stated in the context; never add outside knowledge, assumptions or advice. " +
	"Copy numbers, names and units exactly as they appear in the context. " +
	"If the context does not contain the answer, reply that the knowledge base has no information on it. " +
	"Do not add citation markers, fragment numbers or source lists; sources are attached separately. " +
	"Answer in the language of the question, briefly."

// strategy composes an answer for one query kind.
type strategy struct {
	// retrieval is false for kinds answered without evidence.
	retrieval bool
	compose   func(e *engine, ctx context.Context, t *turn) (string, ErrorCode)
}

// strategies is consulted once per call with the classified kind.
var strategies = map[QueryKind]strategy{
	KindGreeting:     {retrieval: false, compose: (*engine).composeGreeting},
	KindGeneric:      {retrieval: true, compose: (*engine).composeGeneric},
	KindNumericFact:  {retrieval: true, compose: (*engine).composeNumeric},
	KindPersonEntity: {retrieval: true, compose: (*engine).composeEntity},
}

func (e *engine) composeGreeting(_ context.Context, t *turn) (string, ErrorCode) {
	return t.settings.GreetingReply, ""
}

func (e *engine) composeGeneric(ctx context.Context, t *turn) (string, ErrorCode) {
	answer, err := e.generate(ctx, t)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "completion failed", "error", err)
		return "", CodeCompletionFailed
	}
	return answer, ""
}

// composeNumeric keeps the generated answer only when it states numbers and
// all of them come from the evidence. Otherwise the best evidence sentence
// is the answer; without one, sentences stating numbers missing from the
// evidence are dropped whether or not strict mode is on.
func (e *engine) composeNumeric(ctx context.Context, t *turn) (string, ErrorCode) {
	logger := contextutil.LoggerFromContext(ctx)

	answer, err := e.generate(ctx, t)
	if err == nil && numbersGrounded(answer, t.used) {
		return answer, ""
	}
	if err != nil {
		logger.WarnContext(ctx, "completion failed, using extractive numeric answer", "error", err)
	}

	if extracted := extractNumeric(e.seg, t.used, t.keywords); extracted != "" {
		logger.DebugContext(ctx, "numeric answer replaced by evidence sentence")
		return extracted, ""
	}
	if err != nil {
		return "", CodeCompletionFailed
	}
	grounded := dropUngroundedNumbers(e.seg, answer, t.used)
	if grounded == "" {
		logger.InfoContext(ctx, "numeric answer has no grounded sentence")
		return "", CodeLowConfidence
	}
	return grounded, ""
}

// composeEntity falls back to sentences about the named person when the
// generated answer is not supported by the evidence.
func (e *engine) composeEntity(ctx context.Context, t *turn) (string, ErrorCode) {
	logger := contextutil.LoggerFromContext(ctx)

	answer, err := e.generate(ctx, t)
	if err == nil {
		v := e.verifier.verify(answer, t.used, t.keywords, t.settings)
		if !v.FellBack && !v.Refused {
			return answer, ""
		}
		logger.DebugContext(ctx, "entity answer failed verification, using extractive biography")
	} else {
		logger.WarnContext(ctx, "completion failed, using extractive biography", "error", err)
	}

	if bio := extractBiography(e.seg, t.used, t.cls.Name, t.settings.MaxFallbackFacts); bio != "" {
		return bio, ""
	}
	if err != nil {
		return "", CodeCompletionFailed
	}
	return answer, ""
}

// generate runs one chat completion over the context of the turn.
func (e *engine) generate(ctx context.Context, t *turn) (string, error) {
	s := t.settings
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", buildContext(t.used, s.ContextCharBudget), t.query)},
	}

	var resp llm.CompletionResponse
	err := e.withToken(ctx, t, func(ctx context.Context, token string) error {
		var err error
		resp, err = e.chat.Complete(ctx, llm.CompletionRequest{
			Model:            s.ChatModel,
			APIBase:          s.ChatAPIBase,
			Token:            token,
			Messages:         messages,
			MaxTokens:        s.MaxTokens,
			Temperature:      s.Temperature,
			TopP:             s.TopP,
			PresencePenalty:  s.PresencePenalty,
			FrequencyPenalty: s.FrequencyPenalty,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	t.usage.Tokens = t.usage.Tokens.Add(resp.Usage)
	return strings.TrimSpace(resp.Text), nil
}

// buildContext numbers the chunks and stops at budget characters. The chunk
// that crosses the budget is truncated, not dropped.
func buildContext(used []Candidate, budget int) string {
	var b strings.Builder
	remaining := budget
	for i, c := range used {
		if remaining <= 0 {
			break
		}
		header := fmt.Sprintf("[%d] %s\n", i+1, sourceLabel(c))
		body := strings.TrimSpace(c.Chunk.Text)
		if n := utf8.RuneCountInString(body); n > remaining {
			body = truncateRunes(body, remaining)
		}
		b.WriteString(header)
		b.WriteString(body)
		b.WriteString("\n\n")
		remaining -= utf8.RuneCountInString(body)
	}
	return strings.TrimSpace(b.String())
}

func sourceLabel(c Candidate) string {
	switch {
	case c.Chunk.Title != "":
		return c.Chunk.Title
	case c.Chunk.FileName != "":
		return c.Chunk.FileName
	}
	return c.Chunk.FileID
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
