package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"ragstore/pkg/types"
)

// Embedding is a vector embedding plus the metadata needed for caching and
// dimension checks.
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // SHA-256 of the source text
}

// Embedder generates embeddings for text.
type Embedder interface {
	// GenerateEmbedding embeds a single text.
	GenerateEmbedding(ctx context.Context, text string) (*Embedding, error)

	// GenerateBatch embeds multiple texts. The result preserves input order:
	// result[i] is the embedding of texts[i].
	GenerateBatch(ctx context.Context, texts []string) ([]*Embedding, error)

	// Dimension returns the fixed vector dimension this provider produces.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// ComputeHash returns the SHA-256 hex digest of text, the cache key for its
// embedding.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return types.NewError(types.KindValidation, "no texts to embed")
	}
	for i, text := range texts {
		if text == "" {
			return types.Errorf(types.KindValidation, "text at index %d is empty", i)
		}
	}
	return nil
}

// checkDimension rejects vectors that do not match the provider's declared
// dimension. Catches provider-side model changes before they reach the store.
func checkDimension(emb *Embedding, want int) error {
	if len(emb.Vector) != want {
		return types.Errorf(types.KindDimensionMismatch,
			"provider %s returned %d-dimensional vector, expected %d",
			emb.Provider, len(emb.Vector), want)
	}
	return nil
}

// Cache is an in-memory LRU cache of embeddings keyed by content hash.
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

const defaultCacheSize = 10000

// NewCache creates an embedding cache holding up to maxLen entries.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](defaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a deep copy of the cached embedding so caller mutations cannot
// corrupt cached vectors.
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	vector := make([]float32, len(emb.Vector))
	copy(vector, emb.Vector)
	cp := *emb
	cp.Vector = vector
	return &cp, true
}

// Set stores an embedding, evicting the least recently used entry at
// capacity.
func (c *Cache) Set(hash string, emb *Embedding) {
	c.cache.Add(hash, emb)
}

// Size returns the current number of cached embeddings.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Purge()
}
