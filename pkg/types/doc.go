// Package types provides shared type definitions for the ragstore retrieval pipeline.
//
// It defines the domain objects that flow between pipeline stages (Document,
// Chunk, StoredRecord, RetrievedChunk) and the error taxonomy used to classify
// failures across the extraction, embedding, and storage stages.
package types
