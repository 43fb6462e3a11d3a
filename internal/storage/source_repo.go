package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SourceRepo provides methods for source operations.
type SourceRepo struct {
	db *sql.DB
}

// NewSourceRepo creates a new SourceRepo.
func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// GetOrCreateByURL gets an existing source by tenant and url, or creates it.
func (r *SourceRepo) GetOrCreateByURL(ctx context.Context, tenantID, url, title string) (Source, error) {
	src, err := r.getByURL(ctx, tenantID, url)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Source{}, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sources (id, tenant_id, url, title) VALUES (?, ?, ?, ?)
		 ON CONFLICT (tenant_id, url) DO NOTHING`,
		uuid.NewString(), tenantID, url, title,
	)
	if err != nil {
		return Source{}, fmt.Errorf("failed to insert source: %w", err)
	}

	return r.getByURL(ctx, tenantID, url)
}

func (r *SourceRepo) getByURL(ctx context.Context, tenantID, url string) (Source, error) {
	var src Source
	err := r.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, url, title, created_at FROM sources WHERE tenant_id = ? AND url = ?",
		tenantID, url,
	).Scan(&src.ID, &src.TenantID, &src.URL, &src.Title, &src.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, ErrNotFound
	}
	if err != nil {
		return Source{}, fmt.Errorf("failed to query source: %w", err)
	}
	return src, nil
}
