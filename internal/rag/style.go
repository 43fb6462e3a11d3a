package rag

import (
	"context"
	"strings"

	"groundedkb/internal/contextutil"
	"groundedkb/internal/lexical"
	"groundedkb/internal/llm"
)

const stylePrompt = "Rewrite the answer from the user so it reads naturally. " +
	"Keep every fact, name and number exactly as written and keep the language. " +
	"Do not add, remove or generalize information. Reply with the rewritten answer only."

// restyle asks the model to polish a verified answer. The rewrite is kept
// only if it still mentions the question's keywords, introduces no new
// numbers and passes verification on its own.
func (e *engine) restyle(ctx context.Context, t *turn, answer string) string {
	if !t.settings.StyleRewrite {
		return answer
	}
	logger := contextutil.LoggerFromContext(ctx)

	var resp llm.CompletionResponse
	err := e.withToken(ctx, t, func(ctx context.Context, token string) error {
		var err error
		resp, err = e.chat.Complete(ctx, llm.CompletionRequest{
			Model:    t.settings.ChatModel,
			APIBase:  t.settings.ChatAPIBase,
			Token:    token,
			Messages: []llm.Message{{Role: "system", Content: stylePrompt}, {Role: "user", Content: answer}},
			// Rewrites must not drift.
			Temperature: 0,
			MaxTokens:   t.settings.MaxTokens,
		})
		return err
	})
	if err != nil {
		logger.WarnContext(ctx, "style rewrite failed, keeping verified answer", "error", err)
		return answer
	}
	t.usage.Tokens = t.usage.Tokens.Add(resp.Usage)

	rewritten := strings.TrimSpace(resp.Text)
	if reason := e.rejectRewrite(t, answer, rewritten); reason != "" {
		logger.DebugContext(ctx, "style rewrite discarded", "reason", reason)
		return answer
	}
	return rewritten
}

// rejectRewrite returns why a rewrite cannot replace answer, or "".
func (e *engine) rejectRewrite(t *turn, answer, rewritten string) string {
	if rewritten == "" {
		return "empty"
	}
	if lexical.KeywordHits(answer, t.keywords) > 0 && lexical.KeywordHits(rewritten, t.keywords) == 0 {
		return "dropped query keywords"
	}
	if !containsNumbers(answer, lexical.Numbers(rewritten)) {
		return "introduced numbers"
	}
	if t.settings.StrictMode {
		v := e.verifier.verify(rewritten, t.used, t.keywords, t.settings)
		if v.Refused || v.FellBack || v.Kept < v.Total {
			return "unsupported sentences"
		}
	}
	return ""
}
