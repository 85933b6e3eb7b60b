package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragstore/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(sessionID, documentID string, offset int, vector []float32) *Record {
	return &Record{
		SessionID:  sessionID,
		DocumentID: documentID,
		Offset:     offset,
		Content:    fmt.Sprintf("content of %s at %d", documentID, offset),
		Vector:     SerializeVector(vector),
		Dimension:  len(vector),
		Provider:   "local",
		Model:      "hash-embeddings-v1",
	}
}

func TestInsertAndGetRecord(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := testRecord("session-1", "doc-a", 0, []float32{1, 0, 0})
	rec.InteractionID = "turn-7"
	rec.DocumentGroupID = "group-1"
	rec.Filename = "doc.txt"
	require.NoError(t, store.InsertRecord(ctx, rec))
	assert.Greater(t, rec.ID, int64(0))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, "doc-a", got.DocumentID)
	assert.Equal(t, "turn-7", got.InteractionID)
	assert.Equal(t, "group-1", got.DocumentGroupID)
	assert.Equal(t, "doc.txt", got.Filename)
	assert.Equal(t, 0, got.Offset)
	assert.Equal(t, rec.Content, got.Content)
	assert.Equal(t, []float32{1, 0, 0}, DeserializeVector(got.Vector))
	assert.Equal(t, 3, got.Dimension)
}

func TestGetRecordNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetRecord(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestInsertRecordValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := testRecord("", "doc-a", 0, []float32{1})
	err := store.InsertRecord(ctx, rec)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))

	rec = testRecord("s", "", 0, []float32{1})
	err = store.InsertRecord(ctx, rec)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))

	rec = testRecord("s", "d", 0, []float32{1})
	rec.Content = ""
	err = store.InsertRecord(ctx, rec)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))

	rec = testRecord("s", "d", 0, []float32{1, 2})
	rec.Dimension = 3 // blob length disagrees
	err = store.InsertRecord(ctx, rec)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestDimensionFixedByFirstInsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	dim, err := store.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dim)

	require.NoError(t, store.InsertRecord(ctx, testRecord("s", "d1", 0, []float32{1, 0})))

	dim, err = store.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	// A second insert with a different dimension must fail
	err = store.InsertRecord(ctx, testRecord("s", "d2", 0, []float32{1, 0, 0}))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindDimensionMismatch))

	// The first record stays queryable
	results, err := store.SearchVector(ctx, "s", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestListSessionRecords(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "doc-b", 100, []float32{0, 1})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "doc-a", 50, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "doc-a", 0, []float32{1, 1})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s2", "doc-z", 0, []float32{1, 0})))

	records, err := store.ListSessionRecords(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "doc-a", records[0].DocumentID)
	assert.Equal(t, 0, records[0].Offset)
	assert.Equal(t, "doc-a", records[1].DocumentID)
	assert.Equal(t, 50, records[1].Offset)
	assert.Equal(t, "doc-b", records[2].DocumentID)
}

func TestCountSession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, err := store.CountSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d1", 0, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d2", 0, []float32{0, 1})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s2", "d1", 0, []float32{1, 1})))

	n, err = store.CountSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteSession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d1", 0, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d2", 0, []float32{0, 1})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s2", "d1", 0, []float32{1, 1})))

	n, err := store.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := store.ListSessionRecords(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, records)

	// Other sessions untouched
	records, err = store.ListSessionRecords(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeleteDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d1", 0, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d1", 10, []float32{0, 1})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d2", 0, []float32{1, 1})))
	// Same document id in another session must survive
	require.NoError(t, store.InsertRecord(ctx, testRecord("s2", "d1", 0, []float32{1, 0})))

	n, err := store.DeleteDocument(ctx, "s1", "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := store.ListSessionRecords(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "d2", records[0].DocumentID)

	records, err = store.ListSessionRecords(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGetStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Records)
	assert.Equal(t, 0, status.Dimension)
	assert.Equal(t, BuildMode, status.BuildMode)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)

	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d1", 0, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "d2", 0, []float32{0, 1})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s2", "d1", 0, []float32{1, 1})))

	status, err = store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Records)
	assert.Equal(t, 2, status.Sessions)
	assert.Equal(t, 2, status.Documents)
	assert.Equal(t, 2, status.Dimension)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertRecord(ctx, testRecord("s1", "d1", 0, []float32{1, 0})))
	require.NoError(t, tx.Commit())

	records, err := store.ListSessionRecords(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertRecord(ctx, testRecord("s1", "d2", 0, []float32{0, 1})))
	require.NoError(t, tx.Rollback())

	records, err = store.ListSessionRecords(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMigrationsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	// Re-applying against the same database is a no-op
	require.NoError(t, ApplyMigrations(context.Background(), store.db))
}
