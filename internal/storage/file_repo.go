package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// FileRepo provides methods for file operations.
type FileRepo struct {
	db *sql.DB
}

// NewFileRepo creates a new FileRepo.
func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

// GetByName gets a file by tenant and file name.
// Returns nil and ErrNotFound if not found.
func (r *FileRepo) GetByName(ctx context.Context, tenantID, fileName string) (*FileRecord, error) {
	var f FileRecord
	var sourceID sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, source_id, file_name, title, status, updated_at FROM files WHERE tenant_id = ? AND file_name = ?",
		tenantID, fileName,
	).Scan(&f.ID, &f.TenantID, &sourceID, &f.FileName, &f.Title, &f.Status, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	f.SourceID = sourceID.String
	return &f, nil
}

// Upsert inserts a new file or updates an existing one.
// New files get a UUID; existing files (by tenant and name) keep theirs.
func (r *FileRepo) Upsert(ctx context.Context, f *FileRecord) error {
	existing, err := r.GetByName(ctx, f.TenantID, f.FileName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check existing file: %w", err)
	}

	if existing != nil {
		f.ID = existing.ID
	} else if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = FileStatusPending
	}

	var sourceID any
	if f.SourceID != "" {
		sourceID = f.SourceID
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO files (id, tenant_id, source_id, file_name, title, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (tenant_id, file_name) DO UPDATE SET
		 source_id = excluded.source_id, title = excluded.title,
		 status = excluded.status, updated_at = CURRENT_TIMESTAMP`,
		f.ID, f.TenantID, sourceID, f.FileName, f.Title, f.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	return nil
}

// SetStatus changes the status of a file.
func (r *FileRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE files SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
