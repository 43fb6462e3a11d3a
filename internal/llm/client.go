package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is a client for OpenAI-compatible chat completions APIs.
type Client struct {
	BaseURL string
	client  *http.Client
}

// NewClient creates a new chat client. baseURL is used when a request does
// not carry its own APIBase.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		client:  newHTTPClient(),
	}
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	Temperature      float32   `json:"temperature"`
	TopP             *float32  `json:"top_p,omitempty"`
	PresencePenalty  *float32  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32  `json:"frequency_penalty,omitempty"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// Complete sends a chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return CompletionResponse{}, fmt.Errorf("no messages")
	}

	url := fmt.Sprintf("%s/v1/chat/completions", baseURL(req.APIBase, c.BaseURL))

	payload := ChatRequest{
		Model:            req.Model,
		Messages:         req.Messages,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	if req.Token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", req.Token))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return CompletionResponse{}, statusError(resp.StatusCode, raw)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("no choices returned")
	}

	choice := chatResp.Choices[0]
	return CompletionResponse{
		Text:         strings.TrimSpace(choice.Message.Content),
		FinishReason: choice.FinishReason,
		Usage:        chatResp.Usage,
	}, nil
}

func baseURL(override, fallback string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	return strings.TrimRight(fallback, "/")
}
