package storage

import (
	"context"
	"time"
)

// Record is one persisted chunk with its embedding.
type Record struct {
	ID              int64
	SessionID       string
	InteractionID   string
	DocumentID      string
	DocumentGroupID string
	Filename        string
	Offset          int
	Content         string
	Vector          []byte // little-endian float32 blob
	Dimension       int
	Provider        string
	Model           string
	CreatedAt       time.Time
}

// VectorResult is one similarity search hit.
type VectorResult struct {
	RecordID int64
	Score    float64 // cosine similarity in [-1, 1]
}

// TextResult is one keyword search hit.
type TextResult struct {
	RecordID int64
	Score    float64 // normalized BM25 in (0, 1]
}

// Status summarizes store contents and health.
type Status struct {
	Records        int
	Sessions       int
	Documents      int
	Dimension      int // 0 while the store is empty
	DatabaseSizeMB float64
	BuildMode      string
	SchemaVersion  string
}

// Store is the persistence interface for embedded chunks. All reads and
// searches are scoped by session id.
type Store interface {
	// InsertRecord persists a record and fills in its assigned ID and
	// CreatedAt. Fails with a dimension error when the record's dimension
	// differs from the store's established dimension.
	InsertRecord(ctx context.Context, rec *Record) error

	// GetRecord fetches a single record by id.
	GetRecord(ctx context.Context, id int64) (*Record, error)

	// ListSessionRecords returns all records for a session ordered by
	// document id then offset.
	ListSessionRecords(ctx context.Context, sessionID string) ([]*Record, error)

	// CountSession returns the number of records stored in a session.
	CountSession(ctx context.Context, sessionID string) (int, error)

	// SearchVector returns up to limit records from the session ranked by
	// cosine similarity to the query vector. Ties break on offset then
	// document id.
	SearchVector(ctx context.Context, sessionID string, query []float32, limit int) ([]VectorResult, error)

	// SearchText returns up to limit records from the session ranked by BM25
	// keyword relevance.
	SearchText(ctx context.Context, sessionID, query string, limit int) ([]TextResult, error)

	// DeleteSession removes every record in a session, returning the count.
	DeleteSession(ctx context.Context, sessionID string) (int, error)

	// DeleteDocument removes a single document's records within a session,
	// returning the count.
	DeleteDocument(ctx context.Context, sessionID, documentID string) (int, error)

	// Dimension returns the store's established vector dimension, 0 when
	// empty.
	Dimension(ctx context.Context) (int, error)

	// GetStatus reports store contents and health.
	GetStatus(ctx context.Context) (*Status, error)

	// BeginTx starts a transaction scoped to the same operations.
	BeginTx(ctx context.Context) (Tx, error)

	// Close releases the underlying database.
	Close() error
}

// Tx is a transaction over the store's write and read operations.
type Tx interface {
	InsertRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, id int64) (*Record, error)
	ListSessionRecords(ctx context.Context, sessionID string) ([]*Record, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
	DeleteDocument(ctx context.Context, sessionID, documentID string) (int, error)

	Commit() error
	Rollback() error
}
