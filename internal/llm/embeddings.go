package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EmbeddingsClient is a client for OpenAI-compatible embeddings APIs.
type EmbeddingsClient struct {
	BaseURL      string
	ExpectedSize int // Expected vector size; 0 disables the check
	client       *http.Client
}

// NewEmbeddingsClient creates a new embeddings client.
// baseURL is used when a request does not carry its own APIBase.
func NewEmbeddingsClient(baseURL string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		ExpectedSize: expectedSize,
		client:       newHTTPClient(),
	}
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data  []EmbeddingData `json:"data"`
	Usage Usage           `json:"usage"`
}

// Embed generates one vector per input text, in input order.
func (c *EmbeddingsClient) Embed(ctx context.Context, req EmbedRequest) (EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return EmbedResponse{}, fmt.Errorf("empty input array")
	}

	url := fmt.Sprintf("%s/v1/embeddings", baseURL(req.APIBase, c.BaseURL))

	body, err := json.Marshal(EmbeddingsRequest{
		Model: req.Model,
		Input: req.Texts,
	})
	if err != nil {
		return EmbedResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return EmbedResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	if req.Token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", req.Token))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return EmbedResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return EmbedResponse{}, statusError(resp.StatusCode, raw)
	}

	var embeddingsResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return EmbedResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingsResp.Data) != len(req.Texts) {
		return EmbedResponse{}, fmt.Errorf("expected %d embeddings, got %d", len(req.Texts), len(embeddingsResp.Data))
	}

	useIndex := indicesValid(embeddingsResp.Data)
	vectors := make([][]float32, len(embeddingsResp.Data))
	for i, data := range embeddingsResp.Data {
		if c.ExpectedSize > 0 && len(data.Embedding) != c.ExpectedSize {
			return EmbedResponse{}, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
		}
		if len(data.Embedding) == 0 {
			return EmbedResponse{}, fmt.Errorf("embedding %d is empty", i)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}

		pos := i
		if useIndex {
			pos = data.Index
		}
		vectors[pos] = vec
	}

	return EmbedResponse{Vectors: vectors, Usage: embeddingsResp.Usage}, nil
}

// indicesValid reports whether the response indices form a permutation of
// the inputs. Providers that omit the index fall back to positional order.
func indicesValid(data []EmbeddingData) bool {
	seen := make([]bool, len(data))
	for _, d := range data {
		if d.Index < 0 || d.Index >= len(data) || seen[d.Index] {
			return false
		}
		seen[d.Index] = true
	}
	return true
}
