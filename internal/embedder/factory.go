package embedder

import (
	"os"
	"strconv"
	"strings"

	"ragstore/pkg/types"
)

// Environment variables consulted by the factory.
const (
	EnvProvider     = "RAGSTORE_EMBEDDING_PROVIDER"
	EnvCacheSize    = "RAGSTORE_EMBEDDING_CACHE_SIZE"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
)

// Config holds explicit embedder configuration.
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// New creates an embedder from explicit configuration. CacheSize <= 0
// disables caching.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, types.Errorf(types.KindValidation, "unknown embedding provider %q", cfg.Provider)
	}
}

// NewFromEnv creates an embedder from the environment.
// RAGSTORE_EMBEDDING_PROVIDER selects explicitly; otherwise the first
// available API key wins, falling back to the local provider.
func NewFromEnv() (Embedder, error) {
	openaiKey := os.Getenv(EnvOpenAIAPIKey)
	jinaKey := os.Getenv(EnvJinaAPIKey)
	cache := NewCache(cacheSizeFromEnv())

	if provider := strings.ToLower(os.Getenv(EnvProvider)); provider != "" {
		switch provider {
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey, cache)
		case ProviderJina:
			return NewJinaProvider(jinaKey, cache)
		case ProviderLocal:
			return NewLocalProvider(cache)
		default:
			return nil, types.Errorf(types.KindValidation, "unknown embedding provider %q", provider)
		}
	}

	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, cache)
	}
	if jinaKey != "" {
		return NewJinaProvider(jinaKey, cache)
	}
	return NewLocalProvider(cache)
}

// DetectProvider reports which provider NewFromEnv would select.
func DetectProvider() string {
	if provider := strings.ToLower(os.Getenv(EnvProvider)); provider != "" {
		return provider
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	return ProviderLocal
}

func cacheSizeFromEnv() int {
	if v := os.Getenv(EnvCacheSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultCacheSize
}
