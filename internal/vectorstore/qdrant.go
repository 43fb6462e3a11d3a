package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"groundedkb/internal/contextutil"
	"groundedkb/internal/storage"
)

// Payload keys written by the ingestion pipeline for every point.
const (
	payloadChunkID    = "chunk_id"
	payloadFileID     = "file_id"
	payloadSourceID   = "source_id"
	payloadTenantID   = "tenant_id"
	payloadAudience   = "audience"
	payloadModelID    = "model_id"
	payloadStatus     = "status"
	payloadChunkIndex = "chunk_index"
	payloadText       = "text"
	payloadPage       = "page"
	payloadStartSec   = "start_sec"
	payloadEndSec     = "end_sec"
	payloadFileName   = "file_name"
	payloadTitle      = "title"
	payloadURL        = "url"
)

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client for one collection.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
	}, nil
}

// grpcAddress derives the gRPC host and port from the Qdrant HTTP URL.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			// gRPC port is HTTP port + 1
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// Search implements VectorStore.
func (s *QdrantStore) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validate(req); err != nil {
		return nil, err
	}

	limit := uint64(req.Limit)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Filter:         buildFilter(req),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "limit", req.Limit, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		chunk := chunkFromPayload(point.Payload)
		if chunk.ID == "" {
			logger.WarnContext(ctx, "point without chunk_id payload, skipping", "point_id", point.GetId().GetUuid())
			continue
		}
		results = append(results, SearchResult{
			Chunk: chunk,
			Score: float64(point.Score),
		})
	}

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "limit", req.Limit, "results", len(results))
	return results, nil
}

// buildFilter restricts a query to the tenant scope of the request.
func buildFilter(req SearchRequest) *qdrant.Filter {
	must := []*qdrant.Condition{
		qdrant.NewMatch(payloadTenantID, req.TenantID),
		qdrant.NewMatch(payloadModelID, req.ModelID),
		qdrant.NewMatch(payloadStatus, storage.FileStatusReady),
	}
	if len(req.Audiences) > 0 {
		must = append(must, qdrant.NewMatchKeywords(payloadAudience, req.Audiences...))
	}
	if len(req.FileIDs) > 0 {
		must = append(must, qdrant.NewMatchKeywords(payloadFileID, req.FileIDs...))
	}
	return &qdrant.Filter{Must: must}
}

// CollectionExists checks if the configured collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// chunkFromPayload rebuilds the chunk a point was indexed from.
func chunkFromPayload(payload map[string]*qdrant.Value) storage.ChunkRecord {
	m := convertPayloadToMap(payload)
	chunk := storage.ChunkRecord{
		ID:         stringField(m, payloadChunkID),
		FileID:     stringField(m, payloadFileID),
		SourceID:   stringField(m, payloadSourceID),
		TenantID:   stringField(m, payloadTenantID),
		Audience:   stringField(m, payloadAudience),
		ChunkIndex: int(intField(m, payloadChunkIndex)),
		Text:       stringField(m, payloadText),
		FileName:   stringField(m, payloadFileName),
		Title:      stringField(m, payloadTitle),
		URL:        stringField(m, payloadURL),
	}
	if _, ok := m[payloadPage]; ok {
		page := int(intField(m, payloadPage))
		chunk.Page = &page
	}
	if v, ok := floatField(m, payloadStartSec); ok {
		chunk.StartSec = &v
	}
	if v, ok := floatField(m, payloadEndSec); ok {
		chunk.EndSec = &v
	}
	return chunk
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func floatField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		if converted := convertValue(v); converted != nil {
			result[k] = converted
		}
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
