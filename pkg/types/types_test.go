package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkValidate(t *testing.T) {
	valid := Chunk{SessionID: "s", DocumentID: "d", Content: "c"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		chunk Chunk
	}{
		{"missing session", Chunk{DocumentID: "d", Content: "c"}},
		{"missing document", Chunk{SessionID: "s", Content: "c"}},
		{"missing content", Chunk{SessionID: "s", DocumentID: "d"}},
		{"negative offset", Chunk{SessionID: "s", DocumentID: "d", Content: "c", Offset: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.chunk.Validate())
		})
	}
}

func TestErrorKindOf(t *testing.T) {
	err := NewError(KindDimensionMismatch, "dims differ")
	assert.Equal(t, KindDimensionMismatch, KindOf(err))
	assert.True(t, IsKind(err, KindDimensionMismatch))
	assert.False(t, IsKind(err, KindValidation))

	// Kind survives wrapping
	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, KindDimensionMismatch, KindOf(wrapped))

	// Untyped errors have no kind
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestErrorMessageIncludesStatus(t *testing.T) {
	err := Errorf(KindFetchFailure, "fetching %s", "http://example.com")
	err.Status = 404
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "fetch_failure")
}

func TestWrapErrorPreservesChain(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapError(KindStorageFailure, inner, "insert failed")
	require.ErrorIs(t, err, inner)
	assert.True(t, IsKind(err, KindStorageFailure))
}
