// Package retriever coordinates the ingestion and query flows across the
// extractor, chunker, embedder, and store.
//
// Ingestion has two entry points. IngestChunk takes a single pre-chunked
// span, embeds it, and persists it, returning the full stored record.
// IngestDocument runs the whole pipeline for a URL or raw text: extract,
// chunk, embed in parallel, then store chunks in offset order. Embedding is
// all-or-nothing ahead of storage, so an embedding failure stores zero
// chunks. Storage inserts are individual: a failed insert is reported per
// chunk and already-stored chunks stay stored.
//
// Query embeds the prompt, searches the caller's session, and assembles the
// ranked chunks into a context block plus per-chunk provenance. Three modes
// exist: vector (cosine similarity), keyword (BM25), and hybrid (reciprocal
// rank fusion of both). A query never sees records from another session.
package retriever
