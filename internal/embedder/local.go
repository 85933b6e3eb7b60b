package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"ragstore/pkg/types"
)

// LocalProvider generates deterministic embeddings without network access.
// Vectors are derived from the SHA-256 of the text and normalized to unit
// length, so identical text always maps to the same vector and cosine scores
// stay in range. The vectors carry no semantic meaning; the provider exists
// so the pipeline runs offline and tests are reproducible.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates the offline hash-based embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "hash-embeddings-v1",
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, types.NewError(types.KindValidation, "text cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    hashVector(text, LocalDimension),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}
	if l.cache != nil {
		l.cache.Set(hash, emb)
	}
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(texts))
	for i, text := range texts {
		emb, err := l.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashVector expands the text hash into dim pseudo-random components by
// rehashing with a counter, then normalizes to unit length.
func hashVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))

	var block [sha256.Size]byte
	counter := uint64(0)
	filled := 0
	for filled < dim {
		var buf [sha256.Size + 8]byte
		copy(buf[:], seed[:])
		binary.LittleEndian.PutUint64(buf[sha256.Size:], counter)
		block = sha256.Sum256(buf[:])
		counter++

		for i := 0; i+4 <= len(block) && filled < dim; i += 4 {
			u := binary.LittleEndian.Uint32(block[i : i+4])
			// Map to (-1, 1)
			vector[filled] = float32(int32(u)) / float32(math.MaxInt32)
			filled++
		}
	}

	return normalize(vector)
}

// normalize scales v to unit length. Zero vectors are returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
