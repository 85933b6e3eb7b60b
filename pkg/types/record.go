package types

import (
	"errors"
	"time"
)

// Document is the normalized output of the extraction stage: plain text plus
// the identifiers the ingestion flow attaches before chunking. It is immutable
// once fetched.
type Document struct {
	ID          string `json:"document_id"`
	GroupID     string `json:"document_group_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	Filename    string `json:"filename,omitempty"`
	SourceURL   string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Text        string `json:"text"`
}

// Chunk is a bounded, offset-tracked span of a document's text. It is the unit
// of embedding and retrieval.
type Chunk struct {
	SessionID       string `json:"session_id"`
	InteractionID   string `json:"interaction_id,omitempty"`
	DocumentID      string `json:"document_id"`
	DocumentGroupID string `json:"document_group_id,omitempty"`
	Filename        string `json:"filename,omitempty"`
	Offset          int    `json:"offset"`
	Content         string `json:"content"`
}

// Validate checks the chunk invariants before it enters the store.
func (c *Chunk) Validate() error {
	if c.SessionID == "" {
		return errors.New("chunk session id cannot be empty")
	}
	if c.DocumentID == "" {
		return errors.New("chunk document id cannot be empty")
	}
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.Offset < 0 {
		return errors.New("chunk offset must be non-negative")
	}
	return nil
}

// StoredRecord is a chunk plus its embedding vector and the storage-assigned
// id. Records are read-only after insertion and removed only by explicit
// session or document purge.
type StoredRecord struct {
	ID int64 `json:"id"`
	Chunk
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

// RetrievedChunk pairs a stored record with its similarity score for one
// query. The embedded record fields are the provenance a caller shows in the
// UI: which document, at which offset, matched how well.
type RetrievedChunk struct {
	StoredRecord
	Score float64 `json:"score"`
}
