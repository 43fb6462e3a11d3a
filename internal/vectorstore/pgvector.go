package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"groundedkb/internal/contextutil"
	"groundedkb/internal/storage"
)

// PgVectorStore implements VectorStore on PostgreSQL with the pgvector
// extension. The ingestion pipeline maintains a denormalized chunk_vectors
// table: one row per (chunk, model) with the chunk's file metadata and an
// `embedding vector(n)` column.
type PgVectorStore struct {
	db *sql.DB
}

// NewPgVectorStore opens a PostgreSQL connection through the pgx driver.
func NewPgVectorStore(ctx context.Context, dsn string) (*PgVectorStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PgVectorStore{db: db}, nil
}

// Search implements VectorStore. Score is 1 - cosine distance.
func (s *PgVectorStore) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validate(req); err != nil {
		return nil, err
	}

	q, args := buildSearchQuery(req)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		logger.ErrorContext(ctx, "pgvector search failed", "limit", req.Limit, "error", err)
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var page sql.NullInt64
		var startSec, endSec sql.NullFloat64
		c := &r.Chunk
		if err := rows.Scan(
			&c.ID, &c.FileID, &c.SourceID, &c.TenantID, &c.Audience, &c.ChunkIndex, &c.Text,
			&page, &startSec, &endSec, &c.FileName, &c.Title, &c.URL, &r.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}
		if page.Valid {
			p := int(page.Int64)
			c.Page = &p
		}
		if startSec.Valid {
			c.StartSec = &startSec.Float64
		}
		if endSec.Valid {
			c.EndSec = &endSec.Float64
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	logger.DebugContext(ctx, "search completed", "backend", "pgvector", "limit", req.Limit, "results", len(results))
	return results, nil
}

// Ping checks the connection.
func (s *PgVectorStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

// buildSearchQuery renders the nearest-neighbour query for req.
func buildSearchQuery(req SearchRequest) (string, []any) {
	args := []any{pgvector.NewVector(req.Vector), req.TenantID, req.ModelID, storage.FileStatusReady}
	where := []string{"tenant_id = $2", "model_id = $3", "status = $4"}

	if len(req.Audiences) > 0 {
		args = append(args, req.Audiences)
		where = append(where, fmt.Sprintf("audience = ANY($%d)", len(args)))
	}
	if len(req.FileIDs) > 0 {
		args = append(args, req.FileIDs)
		where = append(where, fmt.Sprintf("file_id = ANY($%d)", len(args)))
	}
	args = append(args, req.Limit)

	q := fmt.Sprintf(`SELECT chunk_id, file_id, COALESCE(source_id, ''), tenant_id, audience, chunk_index, text,
		page, start_sec, end_sec, file_name, COALESCE(title, ''), COALESCE(url, ''),
		1 - (embedding <=> $1) AS score
		FROM chunk_vectors
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d`, strings.Join(where, " AND "), len(args))
	return q, args
}
