package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragstore/pkg/types"
)

func TestSerializeDeserializeVector(t *testing.T) {
	vector := []float32{1.5, -2.25, 0, 3.14159, float32(math.SmallestNonzeroFloat32)}
	blob := SerializeVector(vector)
	assert.Len(t, blob, len(vector)*4)
	assert.Equal(t, vector, DeserializeVector(blob))
}

func TestSerializeEmptyVector(t *testing.T) {
	assert.Empty(t, SerializeVector(nil))
	assert.Empty(t, DeserializeVector(nil))
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{0.5, 0.3, -0.2, 0.9}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarityOpposite(t *testing.T) {
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	// Zero magnitude scores 0, not an error or NaN
	score := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	assert.Equal(t, 0.0, score)
	assert.False(t, math.IsNaN(score))
}

func TestCosineSimilarityScaleInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{2, 4, 6}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)
}

func TestCosineSimilarityLengthMismatch(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
}

func TestSearchVectorRanking(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "exact", 0, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "close", 0, []float32{1, 0.5})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "orthogonal", 0, []float32{0, 1})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "opposite", 0, []float32{-1, 0})))

	results, err := store.SearchVector(ctx, "s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Descending by score
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, -1.0, results[3].Score, 1e-6)

	best, err := store.GetRecord(ctx, results[0].RecordID)
	require.NoError(t, err)
	assert.Equal(t, "exact", best.DocumentID)
}

func TestSearchVectorLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "doc", i*10, []float32{1, float32(i)})))
	}

	results, err := store.SearchVector(ctx, "s1", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Limit larger than the session returns everything, no padding
	results, err = store.SearchVector(ctx, "s1", []float32{1, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, results, 5)

	results, err = store.SearchVector(ctx, "s1", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchVectorSessionIsolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, testRecord("alice", "d1", 0, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("bob", "d1", 0, []float32{1, 0})))

	results, err := store.SearchVector(ctx, "alice", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	rec, err := store.GetRecord(ctx, results[0].RecordID)
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.SessionID)
}

func TestSearchVectorEmptySession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, testRecord("other", "d1", 0, []float32{1, 0})))

	results, err := store.SearchVector(ctx, "nobody", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchVectorTieBreak(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Identical vectors produce identical scores; order must fall back to
	// offset ascending, then document id ascending.
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "zzz", 20, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "bbb", 10, []float32{1, 0})))
	require.NoError(t, store.InsertRecord(ctx, testRecord("s1", "aaa", 10, []float32{1, 0})))

	results, err := store.SearchVector(ctx, "s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	docs := make([]string, 0, 3)
	for _, r := range results {
		rec, err := store.GetRecord(ctx, r.RecordID)
		require.NoError(t, err)
		docs = append(docs, rec.DocumentID)
	}
	assert.Equal(t, []string{"aaa", "bbb", "zzz"}, docs)

	// Repeat queries return identical orderings
	again, err := store.SearchVector(ctx, "s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestSearchText(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alpha := testRecord("s1", "d1", 0, []float32{1, 0})
	alpha.Content = "the quick brown fox jumps over the lazy dog"
	require.NoError(t, store.InsertRecord(ctx, alpha))

	beta := testRecord("s1", "d2", 0, []float32{0, 1})
	beta.Content = "an entirely unrelated sentence about databases"
	require.NoError(t, store.InsertRecord(ctx, beta))

	other := testRecord("s2", "d3", 0, []float32{1, 1})
	other.Content = "quick brown fox in another session"
	require.NoError(t, store.InsertRecord(ctx, other))

	results, err := store.SearchText(ctx, "s1", "quick brown fox", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, alpha.ID, results[0].RecordID)
	assert.Greater(t, results[0].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0)
}

func TestSearchTextDeletedRecordsGone(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := testRecord("s1", "d1", 0, []float32{1, 0})
	rec.Content = "findable marker phrase"
	require.NoError(t, store.InsertRecord(ctx, rec))

	_, err := store.DeleteSession(ctx, "s1")
	require.NoError(t, err)

	results, err := store.SearchText(ctx, "s1", "findable marker", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTextEmptyQuery(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.SearchText(context.Background(), "s1", "", 10)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"quotes", `say "hi"`, `say \"hi\"`},
		{"wildcard", "pre*", `pre\*`},
		{"operators", "cats AND dogs", `cats \AND dogs`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFTSQuery(tt.input))
		})
	}
}
