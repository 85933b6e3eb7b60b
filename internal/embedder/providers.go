package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragstore/pkg/types"
)

const (
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"

	OpenAIDimension = 1536
	JinaDimension   = 1024
	LocalDimension  = 384

	// MaxBatchSize caps a single API call; larger batches are the caller's
	// job to split.
	MaxBatchSize = 100

	openaiEndpoint = "https://api.openai.com/v1/embeddings"
	jinaEndpoint   = "https://api.jina.ai/v1/embeddings"
)

// remoteProvider implements Embedder over the OpenAI-style embeddings API.
// OpenAI and Jina share the same request and response shape, so one
// implementation serves both with different endpoints and models.
type remoteProvider struct {
	name       string
	endpoint   string
	model      string
	dimension  int
	apiKey     string
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates an embedder backed by the OpenAI embeddings API.
func NewOpenAIProvider(apiKey string, cache *Cache) (Embedder, error) {
	return newRemoteProvider(ProviderOpenAI, openaiEndpoint, DefaultOpenAIModel, OpenAIDimension, apiKey, cache)
}

// NewJinaProvider creates an embedder backed by the Jina AI embeddings API.
func NewJinaProvider(apiKey string, cache *Cache) (Embedder, error) {
	return newRemoteProvider(ProviderJina, jinaEndpoint, DefaultJinaModel, JinaDimension, apiKey, cache)
}

func newRemoteProvider(name, endpoint, model string, dimension int, apiKey string, cache *Cache) (Embedder, error) {
	if apiKey == "" {
		return nil, types.Errorf(types.KindValidation, "no API key configured for %s provider", name)
	}
	return &remoteProvider{
		name:       name,
		endpoint:   endpoint,
		model:      model,
		dimension:  dimension,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}, nil
}

func (p *remoteProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, types.NewError(types.KindValidation, "text cannot be empty")
	}

	if p.cache != nil {
		if emb, ok := p.cache.Get(ComputeHash(text)); ok {
			return emb, nil
		}
	}

	embs, err := p.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

func (p *remoteProvider) GenerateBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, types.Errorf(types.KindValidation, "batch of %d exceeds limit of %d", len(texts), MaxBatchSize)
	}

	embeddings, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() ([]*Embedding, error) {
		return p.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, types.WrapError(types.KindEmbeddingFailure, err,
			fmt.Sprintf("%s embedding request failed", p.name))
	}

	if len(embeddings) != len(texts) {
		return nil, types.Errorf(types.KindEmbeddingFailure,
			"%s returned %d embeddings for %d texts", p.name, len(embeddings), len(texts))
	}
	for i, emb := range embeddings {
		if err := checkDimension(emb, p.dimension); err != nil {
			return nil, err
		}
		emb.Hash = ComputeHash(texts[i])
		if p.cache != nil {
			p.cache.Set(emb.Hash, emb)
		}
	}

	return embeddings, nil
}

func (p *remoteProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// The API may return entries out of order; the index field is
	// authoritative.
	embeddings := make([]*Embedding, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
	}

	return embeddings, nil
}

func (p *remoteProvider) Dimension() int {
	return p.dimension
}

func (p *remoteProvider) Provider() string {
	return p.name
}

func (p *remoteProvider) Model() string {
	return p.model
}

func (p *remoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
