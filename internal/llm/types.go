package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthorized is returned when a provider rejects the access token.
// Callers may refresh the token and retry once.
var ErrUnauthorized = errors.New("provider rejected access token")

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption of a provider call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// EmbedRequest asks for one vector per text.
// Model, APIBase and Token are chosen per call so tenants can use different providers.
type EmbedRequest struct {
	Model   string
	APIBase string
	Token   string
	Texts   []string
}

// EmbedResponse carries vectors in input order.
type EmbedResponse struct {
	Vectors [][]float32
	Usage   Usage
}

// CompletionRequest holds parameters for a chat completion call.
type CompletionRequest struct {
	Model    string
	APIBase  string
	Token    string
	Messages []Message

	// MaxTokens limits the generated tokens. If 0, no limit is sent.
	MaxTokens int

	// Temperature controls the randomness of the output.
	Temperature float32

	// Optional sampling parameters; nil leaves the provider default.
	TopP             *float32
	PresencePenalty  *float32
	FrequencyPenalty *float32
}

// CompletionResponse is the generated text of the first choice.
type CompletionResponse struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// statusError maps a non-OK provider response to an error.
// 401 and 403 wrap ErrUnauthorized.
func statusError(code int, body []byte) error {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: status %d: %s", ErrUnauthorized, code, string(body))
	}
	return fmt.Errorf("bad status %d: %s", code, string(body))
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 2 * time.Minute,
	}
}
