package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"ragstore/internal/chunker"
	"ragstore/internal/embedder"
	"ragstore/internal/extractor"
	"ragstore/internal/retriever"
	"ragstore/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "ragstore"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.ragstore"
)

// Server wraps the MCP server with the retrieval pipeline.
type Server struct {
	mcp         *server.MCPServer
	store       storage.Store
	coordinator *retriever.Coordinator
}

// NewServer builds the full pipeline against the database at dbPath and
// registers the tools. The embedding provider comes from the environment.
func NewServer(dbPath string) (*Server, error) {
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".ragstore")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbFile := filepath.Join(dbPath, "ragstore.db")

	store, err := storage.NewSQLiteStore(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	coord := retriever.New(
		extractor.New(),
		chunker.New(chunker.DefaultPolicy()),
		emb,
		store,
	)

	return newServer(store, coord), nil
}

// newServer wires an already-built pipeline; tests use this directly.
func newServer(store storage.Store, coord *retriever.Coordinator) *Server {
	s := &Server{
		mcp:         server.NewMCPServer(ServerName, ServerVersion),
		store:       store,
		coordinator: coord,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestChunkTool(), s.handleIngestChunk)
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(querySessionTool(), s.handleQuerySession)
	s.mcp.AddTool(extractTextTool(), s.handleExtractText)
	s.mcp.AddTool(purgeSessionTool(), s.handlePurgeSession)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
