package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks groundedkb/internal/vectorstore VectorStore

import (
	"context"

	"groundedkb/internal/storage"
)

// SearchRequest is a nearest-neighbour query scoped to one tenant.
// Only chunks of ready files embedded with ModelID are eligible.
type SearchRequest struct {
	TenantID  string
	Audiences []string
	ModelID   string
	FileIDs   []string // optional
	Vector    []float32
	Limit     int
}

// SearchResult is an indexed chunk with its similarity to the query.
// Score is normalized so that higher is closer, comparable to cosine similarity.
type SearchResult struct {
	Chunk storage.ChunkRecord
	Score float64
}

// VectorStore defines the interface for vector index lookups.
type VectorStore interface {
	// Search returns up to req.Limit results ordered by descending score.
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

func validate(req SearchRequest) error {
	switch {
	case req.Limit <= 0:
		return errLimit
	case len(req.Vector) == 0:
		return errEmptyVector
	case req.TenantID == "" || req.ModelID == "":
		return errScope
	}
	return nil
}
