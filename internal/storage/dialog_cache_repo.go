package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_dialog_cache_store.go -package=mocks groundedkb/internal/storage DialogCacheStore

// DialogCacheStore persists per-dialog retrieval state for follow-up questions.
type DialogCacheStore interface {
	// Get returns the cache for a dialog and model. Returns ErrNotFound when
	// absent and an error wrapping ErrCorruptCache when the row cannot be decoded.
	Get(ctx context.Context, dialogID, modelID string) (*DialogCache, error)
	// Upsert replaces the cache row in a single statement.
	Upsert(ctx context.Context, cache *DialogCache) error
}

// DialogCacheRepo implements DialogCacheStore on SQLite.
type DialogCacheRepo struct {
	db *sql.DB
}

// NewDialogCacheRepo creates a new DialogCacheRepo.
func NewDialogCacheRepo(db *sql.DB) *DialogCacheRepo {
	return &DialogCacheRepo{db: db}
}

// Get implements DialogCacheStore.
func (r *DialogCacheRepo) Get(ctx context.Context, dialogID, modelID string) (*DialogCache, error) {
	var cache DialogCache
	var chunkIDs, keywords string
	err := r.db.QueryRowContext(ctx,
		"SELECT dialog_id, model_id, chunk_ids, keywords, updated_at FROM dialog_rag_cache WHERE dialog_id = ? AND model_id = ?",
		dialogID, modelID,
	).Scan(&cache.DialogID, &cache.ModelID, &chunkIDs, &keywords, &cache.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dialog cache: %w", err)
	}

	if err := json.Unmarshal([]byte(chunkIDs), &cache.ChunkIDs); err != nil {
		return nil, fmt.Errorf("%w: chunk_ids: %v", ErrCorruptCache, err)
	}
	if err := json.Unmarshal([]byte(keywords), &cache.Keywords); err != nil {
		return nil, fmt.Errorf("%w: keywords: %v", ErrCorruptCache, err)
	}
	return &cache, nil
}

// Upsert implements DialogCacheStore.
func (r *DialogCacheRepo) Upsert(ctx context.Context, cache *DialogCache) error {
	chunkIDs, err := json.Marshal(nonNil(cache.ChunkIDs))
	if err != nil {
		return fmt.Errorf("failed to encode chunk ids: %w", err)
	}
	keywords, err := json.Marshal(nonNil(cache.Keywords))
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO dialog_rag_cache (dialog_id, model_id, chunk_ids, keywords, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (dialog_id, model_id) DO UPDATE SET
		 chunk_ids = excluded.chunk_ids, keywords = excluded.keywords, updated_at = CURRENT_TIMESTAMP`,
		cache.DialogID, cache.ModelID, string(chunkIDs), string(keywords),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dialog cache: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
