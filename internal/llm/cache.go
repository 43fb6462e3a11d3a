package llm

import (
	"context"
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Embedder is the provider call wrapped by CachedEmbedder.
type Embedder interface {
	Embed(ctx context.Context, req EmbedRequest) (EmbedResponse, error)
}

// CachedEmbedder memoizes single-text embedding calls keyed by model and
// text. Follow-up questions and retried queries hit the cache instead of the
// provider. Multi-text requests pass through.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[[32]byte, []float32]
}

// NewCachedEmbedder wraps next with an LRU cache of size entries.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1000
	}
	cache, err := lru.New[[32]byte, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed returns a cached vector when available. Cached hits report zero usage.
func (c *CachedEmbedder) Embed(ctx context.Context, req EmbedRequest) (EmbedResponse, error) {
	if len(req.Texts) != 1 {
		return c.next.Embed(ctx, req)
	}

	key := cacheKey(req)
	if vec, ok := c.cache.Get(key); ok {
		return EmbedResponse{Vectors: [][]float32{copyVector(vec)}}, nil
	}

	resp, err := c.next.Embed(ctx, req)
	if err != nil {
		return resp, err
	}
	if len(resp.Vectors) == 1 {
		c.cache.Add(key, copyVector(resp.Vectors[0]))
	}
	return resp, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

func cacheKey(req EmbedRequest) [32]byte {
	h := sha256.New()
	h.Write([]byte(req.APIBase))
	h.Write([]byte{0})
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(req.Texts[0]))
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
