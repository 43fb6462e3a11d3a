package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks groundedkb/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"groundedkb/internal/contextutil"
	"groundedkb/internal/lexical"
)

// ChunkStore is the read side of the chunk tables used by retrieval.
type ChunkStore interface {
	// ScanNearest computes cosine similarity in process over the most recent
	// filter.ScanLimit embeddings and returns the best limit chunks.
	// Rows whose dimension differs from the query are skipped.
	ScanNearest(ctx context.Context, filter ChunkFilter, query []float32, limit int) ([]ScoredChunk, error)
	// SearchText returns chunks containing any of the keywords.
	SearchText(ctx context.Context, filter ChunkFilter, keywords []string, limit int) ([]ChunkRecord, error)
	// GetByIDs loads chunks by id within the filter scope, in the order of ids.
	GetByIDs(ctx context.Context, filter ChunkFilter, ids []string) ([]ChunkRecord, error)
	// CountIndexed counts ready chunks with an embedding for filter.ModelID.
	CountIndexed(ctx context.Context, filter ChunkFilter) (int, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = `c.id, c.file_id, COALESCE(f.source_id, ''), c.tenant_id, c.audience, c.chunk_index,
	c.text, c.page, c.start_sec, c.end_sec, f.file_name, f.title, COALESCE(s.url, '')`

const chunkJoins = `FROM chunks c
	JOIN files f ON f.id = c.file_id
	LEFT JOIN sources s ON s.id = f.source_id`

// Insert inserts a single chunk. The chunk.ID must be set before calling.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chunks (id, file_id, tenant_id, audience, chunk_index, text, search_text, page, start_sec, end_sec)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.FileID, chunk.TenantID, chunk.Audience, chunk.ChunkIndex, chunk.Text,
		searchText(chunk.Text), chunk.Page, chunk.StartSec, chunk.EndSec,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// UpsertEmbedding stores the vector of a chunk for one embedding model.
func (r *ChunkRepo) UpsertEmbedding(ctx context.Context, chunkID, modelID string, vector []float32) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chunk_embeddings (chunk_id, model_id, dim, vector) VALUES (?, ?, ?, ?)
		 ON CONFLICT (chunk_id, model_id) DO UPDATE SET
		 dim = excluded.dim, vector = excluded.vector, created_at = CURRENT_TIMESTAMP`,
		chunkID, modelID, len(vector), SerializeVector(vector),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// ScanNearest implements ChunkStore.
func (r *ChunkRepo) ScanNearest(ctx context.Context, filter ChunkFilter, query []float32, limit int) ([]ScoredChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if filter.ModelID == "" {
		return nil, fmt.Errorf("model id is required")
	}

	where, args := filter.where()
	q := `SELECT ` + chunkColumns + `, e.dim, e.vector ` + chunkJoins + `
		JOIN chunk_embeddings e ON e.chunk_id = c.id AND e.model_id = ?
		WHERE ` + where + `
		ORDER BY e.created_at DESC, c.rowid DESC`
	args = append([]any{filter.ModelID}, args...)
	if filter.ScanLimit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.ScanLimit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []ScoredChunk
	skipped := 0
	for rows.Next() {
		var chunk ChunkRecord
		var dim int
		var blob []byte
		dest := append(chunk.scanDest(), &dim, &blob)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		if dim != len(query) || len(blob) != dim*4 {
			skipped++
			continue
		}
		results = append(results, ScoredChunk{
			Chunk: chunk,
			Score: CosineSimilarity(query, DeserializeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if skipped > 0 {
		logger.DebugContext(ctx, "skipped embeddings with mismatched dimension", "skipped", skipped, "query_dim", len(query))
	}

	// Stable: equal scores keep scan order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SearchText implements ChunkStore. Keywords are matched against the
// normalized token text of each chunk, so multi-word keywords match across
// punctuation.
func (r *ChunkRepo) SearchText(ctx context.Context, filter ChunkFilter, keywords []string, limit int) ([]ChunkRecord, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	where, args := filter.where()
	likes := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		likes = append(likes, `c.search_text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(kw))+"%")
	}

	q := `SELECT ` + chunkColumns + ` ` + chunkJoins + `
		WHERE ` + where + ` AND (` + strings.Join(likes, " OR ") + `)
		ORDER BY c.file_id, c.chunk_index`
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	return r.queryChunks(ctx, q, args...)
}

// GetByIDs implements ChunkStore.
func (r *ChunkRepo) GetByIDs(ctx context.Context, filter ChunkFilter, ids []string) ([]ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	where, args := filter.where()
	q := `SELECT ` + chunkColumns + ` ` + chunkJoins + `
		WHERE ` + where + ` AND c.id IN (` + placeholders(len(ids)) + `)`
	for _, id := range ids {
		args = append(args, id)
	}

	chunks, err := r.queryChunks(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]ChunkRecord, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	ordered := make([]ChunkRecord, 0, len(chunks))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// CountIndexed implements ChunkStore.
func (r *ChunkRepo) CountIndexed(ctx context.Context, filter ChunkFilter) (int, error) {
	where, args := filter.where()
	q := `SELECT COUNT(*) ` + chunkJoins
	if filter.ModelID != "" {
		q += ` JOIN chunk_embeddings e ON e.chunk_id = c.id AND e.model_id = ?`
		args = append([]any{filter.ModelID}, args...)
	}
	q += ` WHERE ` + where

	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (r *ChunkRepo) queryChunks(ctx context.Context, q string, args ...any) ([]ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []ChunkRecord
	for rows.Next() {
		var chunk ChunkRecord
		if err := rows.Scan(chunk.scanDest()...); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return chunks, nil
}

// scanDest returns scan targets matching chunkColumns.
func (c *ChunkRecord) scanDest() []any {
	return []any{
		&c.ID, &c.FileID, &c.SourceID, &c.TenantID, &c.Audience, &c.ChunkIndex,
		&c.Text, &c.Page, &c.StartSec, &c.EndSec, &c.FileName, &c.Title, &c.URL,
	}
}

// where renders the tenant scope shared by every retrieval query.
func (f ChunkFilter) where() (string, []any) {
	clauses := []string{"c.tenant_id = ?", "f.status = ?"}
	args := []any{f.TenantID, FileStatusReady}
	if len(f.Audiences) > 0 {
		clauses = append(clauses, "c.audience IN ("+placeholders(len(f.Audiences))+")")
		for _, a := range f.Audiences {
			args = append(args, a)
		}
	}
	if len(f.FileIDs) > 0 {
		clauses = append(clauses, "c.file_id IN ("+placeholders(len(f.FileIDs))+")")
		for _, id := range f.FileIDs {
			args = append(args, id)
		}
	}
	return strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// searchText is the normalized form used for lexical recall.
func searchText(text string) string {
	return " " + strings.Join(lexical.Tokenize(text), " ") + " "
}
