package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrCorruptCache is returned when a dialog cache row cannot be decoded.
	ErrCorruptCache = errors.New("corrupt dialog cache")
)

// File statuses. Only ready files are visible to retrieval.
const (
	FileStatusPending = "pending"
	FileStatusReady   = "ready"
	FileStatusFailed  = "failed"
)

// Audiences a chunk can be published to.
const (
	AudienceStaff  = "staff"
	AudienceClient = "client"
)

// VisibleAudiences returns the chunk audiences a caller of the given audience
// may read. Staff see everything; clients see client material only.
func VisibleAudiences(audience string) []string {
	if audience == AudienceStaff {
		return []string{AudienceStaff, AudienceClient}
	}
	return []string{AudienceClient}
}

// Source is where a file came from (site, channel, upload batch).
type Source struct {
	ID        string
	TenantID  string
	URL       string
	Title     string
	CreatedAt time.Time
}

// FileRecord is an ingested document or media file.
type FileRecord struct {
	ID        string // UUID
	TenantID  string
	SourceID  string // optional
	FileName  string
	Title     string
	Status    string
	UpdatedAt time.Time
}

// ChunkRecord is a retrievable span of a file joined with its file metadata.
type ChunkRecord struct {
	ID         string
	FileID     string
	SourceID   string
	TenantID   string
	Audience   string
	ChunkIndex int
	Text       string
	Page       *int     // document page, when known
	StartSec   *float64 // media timestamp, when known
	EndSec     *float64

	FileName string
	Title    string
	URL      string
}

// MetadataText is the file metadata matched against query keywords.
func (c ChunkRecord) MetadataText() string {
	return c.FileName + " " + c.Title + " " + c.URL
}

// ScoredChunk is a chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk ChunkRecord
	Score float64
}

// ChunkFilter scopes retrieval to one tenant. Only chunks of ready files are
// ever returned.
type ChunkFilter struct {
	TenantID  string
	Audiences []string
	ModelID   string   // embedding model; required for vector scans
	FileIDs   []string // optional
	ScanLimit int      // most recent embedding rows considered by ScanNearest
}

// DialogCache remembers what the last answer in a dialog was built from.
type DialogCache struct {
	DialogID  string
	ModelID   string
	ChunkIDs  []string
	Keywords  []string
	UpdatedAt time.Time
}
