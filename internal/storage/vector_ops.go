package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"regexp"
	"sort"
	"strings"

	"ragstore/pkg/types"
)

// searchVector ranks a session's records by cosine similarity to the query.
func searchVector(ctx context.Context, db *sql.DB, sessionID string, query []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, sessionID, query, limit)
	}
	return searchVectorFallback(ctx, db, sessionID, query, limit)
}

// searchVectorOptimized computes cosine distance inside SQL via sqlite-vec.
// The ORDER BY mirrors the fallback's tie-break so both builds return
// identical orderings.
func searchVectorOptimized(ctx context.Context, db *sql.DB, sessionID string, query []float32, limit int) ([]VectorResult, error) {
	queryBlob := serializeVector(query)

	// vec_distance_cosine returns distance; similarity = 1 - distance
	sqlQuery := `
		SELECT
			id,
			1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM records
		WHERE session_id = ?
		ORDER BY similarity DESC, chunk_offset ASC, document_id ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, queryBlob, sessionID, limit)
	if err != nil {
		return nil, types.WrapError(types.KindStorageFailure, err, "failed to execute vector search")
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.RecordID, &result.Score); err != nil {
			return nil, types.WrapError(types.KindStorageFailure, err, "failed to scan search result")
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// candidate carries the fields needed for scoring and tie-breaking.
type candidate struct {
	recordID   int64
	documentID string
	offset     int
	score      float64
}

// searchVectorFallback loads the session's vectors and scores them in Go.
func searchVectorFallback(ctx context.Context, db *sql.DB, sessionID string, query []float32, limit int) ([]VectorResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, document_id, chunk_offset, vector
		FROM records
		WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return nil, types.WrapError(types.KindStorageFailure, err, "failed to query records")
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 256)
	for rows.Next() {
		var c candidate
		var blob []byte
		if err := rows.Scan(&c.recordID, &c.documentID, &c.offset, &blob); err != nil {
			return nil, err
		}
		c.score = cosineSimilarity(query, deserializeVector(blob))
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)

	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]VectorResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorResult{RecordID: candidates[i].recordID, Score: candidates[i].score}
	}
	return results, nil
}

// sortCandidates orders by score descending, then chunk offset ascending,
// then document id ascending. Tied scores always rank the same way, so
// repeated queries return identical orderings.
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].offset != candidates[j].offset {
			return candidates[i].offset < candidates[j].offset
		}
		return candidates[i].documentID < candidates[j].documentID
	})
}

// searchText performs BM25 full-text search over a session via FTS5.
func searchText(ctx context.Context, db *sql.DB, sessionID, query string, limit int) ([]TextResult, error) {
	if limit <= 0 {
		return []TextResult{}, nil
	}
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, types.NewError(types.KindValidation, "search query cannot be empty")
	}

	// bm25() is negative, lower is better
	sqlQuery := `
		SELECT r.id, bm25(records_fts) AS score
		FROM records_fts
		INNER JOIN records r ON records_fts.rowid = r.id
		WHERE records_fts MATCH ?
		AND r.session_id = ?
		ORDER BY score, r.chunk_offset ASC, r.document_id ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, sanitized, sessionID, limit)
	if err != nil {
		return nil, types.WrapError(types.KindStorageFailure, err, "failed to execute text search")
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.RecordID, &result.Score); err != nil {
			return nil, err
		}
		// Map BM25 (typically [-50, 0]) into (0, 1]
		result.Score = 1.0 / (1.0 + math.Abs(result.Score)/50.0)
		results = append(results, result)
	}
	return results, rows.Err()
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Zero-magnitude vectors score 0 rather than erroring.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FTS5 operator pattern for escaping Boolean operators
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery escapes FTS5 operators and special characters so user
// text cannot inject match expressions.
func sanitizeFTSQuery(query string) string {
	if query == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		`"`, `\"`,
		`*`, `\*`,
		`(`, `\(`,
		`)`, `\)`,
	)
	escaped := replacer.Replace(query)

	escaped = ftsOperatorPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		return `\` + match
	})

	return escaped
}

// SerializeVector is an exported helper for callers that build record blobs
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is the inverse of SerializeVector
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
