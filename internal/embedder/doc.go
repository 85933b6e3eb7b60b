// Package embedder generates vector embeddings for chunk and query text.
//
// Three providers are supported:
//
//   - OpenAI (text-embedding-3-small, 1536 dimensions)
//   - Jina AI (jina-embeddings-v3, 1024 dimensions)
//   - Local (deterministic hash-derived vectors, 384 dimensions, no network)
//
// The two remote providers share one HTTP implementation since their
// embeddings APIs speak the same request and response shape. Remote calls
// retry transient failures with exponential backoff and respect context
// cancellation. Every provider verifies that returned vectors match its
// declared dimension before handing them to callers, so a provider-side
// model change surfaces as a typed dimension error instead of corrupting
// the store.
//
// Identical text always produces the same vector for a given provider, which
// makes embeddings cacheable by content hash. The package ships an LRU cache
// keyed by SHA-256 of the text; the factory wires it in by default.
//
// Provider selection happens through NewFromEnv: RAGSTORE_EMBEDDING_PROVIDER
// picks one explicitly, otherwise the first available API key wins, and the
// local provider is the fallback so the pipeline works offline.
package embedder
