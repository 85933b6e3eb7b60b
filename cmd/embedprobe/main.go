// Command embedprobe exercises the full ingestion and query pipeline against
// an in-memory store using the configured embedding provider. Useful for
// verifying provider credentials and end-to-end behavior without an MCP
// client.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"ragstore/internal/chunker"
	"ragstore/internal/embedder"
	"ragstore/internal/extractor"
	"ragstore/internal/retriever"
	"ragstore/internal/storage"
	"ragstore/pkg/types"
)

func main() {
	log.SetOutput(os.Stderr)
	fmt.Println("Probing embedding pipeline...")

	emb, err := embedder.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	defer emb.Close()
	fmt.Printf("  Provider: %s\n", emb.Provider())
	fmt.Printf("  Model: %s\n", emb.Model())
	fmt.Printf("  Dimension: %d\n", emb.Dimension())

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	coord := retriever.New(
		extractor.New(),
		chunker.New(chunker.DefaultPolicy()),
		emb,
		store,
	)

	ctx := context.Background()
	samples := []string{
		"The quick brown fox jumps over the lazy dog.",
		"SQLite stores vectors as little-endian float32 blobs.",
		"Paragraph boundaries make better chunks than fixed windows.",
	}

	for i, content := range samples {
		stored, err := coord.IngestChunk(ctx, types.Chunk{
			SessionID:  "probe",
			DocumentID: fmt.Sprintf("sample-%d", i+1),
			Content:    content,
		})
		if err != nil {
			log.Fatalf("Failed to ingest chunk %d: %v", i+1, err)
		}
		fmt.Printf("  Stored record %d (%d dims)\n", stored.ID, len(stored.Embedding))
	}

	result, err := coord.Query(ctx, retriever.QueryRequest{
		SessionID: "probe",
		Prompt:    "how are vectors stored?",
		TopK:      len(samples),
	})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Printf("\nQuery results:\n")
	for _, chunk := range result.Chunks {
		fmt.Printf("  %.4f  %s\n", chunk.Score, chunk.Content)
	}

	status, err := coord.Status(ctx)
	if err != nil {
		log.Fatalf("Status failed: %v", err)
	}
	fmt.Printf("\nStore: %d records, dimension %d, build mode %s\n",
		status.Store.Records, status.Store.Dimension, status.Store.BuildMode)

	if len(result.Chunks) == len(samples) {
		fmt.Println("\nSUCCESS: pipeline round trip completed")
	} else {
		fmt.Println("\nFAILURE: query returned unexpected result count")
		os.Exit(1)
	}
}
