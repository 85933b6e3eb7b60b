package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"ragstore/internal/retriever"
	"ragstore/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams          = -32602 // Invalid method parameters
	ErrorCodeInternalError          = -32603 // Internal JSON-RPC error
	ErrorCodeFetchFailed            = -32001 // Remote document could not be fetched
	ErrorCodeUnsupportedContentType = -32002 // Payload cannot be converted to text
	ErrorCodeEmbeddingFailed        = -32003 // Embedding provider failure
	ErrorCodeDimensionMismatch      = -32004 // Vector dimension conflicts with the store
	ErrorCodeNotFound               = -32005 // Requested entity does not exist
)

// handleIngestChunk handles the ingest_chunk tool invocation
func (s *Server) handleIngestChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	chunk := types.Chunk{
		SessionID:       getStringDefault(args, "session_id", ""),
		InteractionID:   getStringDefault(args, "interaction_id", ""),
		DocumentID:      getStringDefault(args, "document_id", ""),
		DocumentGroupID: getStringDefault(args, "document_group_id", ""),
		Filename:        getStringDefault(args, "filename", ""),
		Offset:          getIntDefault(args, "offset", 0),
		Content:         getStringDefault(args, "content", ""),
	}

	stored, err := s.coordinator.IngestChunk(ctx, chunk)
	if err != nil {
		return nil, mapPipelineError(err)
	}

	response := map[string]interface{}{
		"id":          stored.ID,
		"session_id":  stored.SessionID,
		"document_id": stored.DocumentID,
		"offset":      stored.Offset,
		"content":     stored.Content,
		"dimension":   len(stored.Embedding),
		"created_at":  stored.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if stored.InteractionID != "" {
		response["interaction_id"] = stored.InteractionID
	}
	if stored.DocumentGroupID != "" {
		response["document_group_id"] = stored.DocumentGroupID
	}
	if stored.Filename != "" {
		response["filename"] = stored.Filename
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	req := retriever.IngestDocumentRequest{
		SessionID:       getStringDefault(args, "session_id", ""),
		InteractionID:   getStringDefault(args, "interaction_id", ""),
		DocumentID:      getStringDefault(args, "document_id", ""),
		DocumentGroupID: getStringDefault(args, "document_group_id", ""),
		Filename:        getStringDefault(args, "filename", ""),
		URL:             getStringDefault(args, "url", ""),
		Text:            getStringDefault(args, "text", ""),
	}

	result, err := s.coordinator.IngestDocument(ctx, req)
	if err != nil {
		return nil, mapPipelineError(err)
	}

	response := map[string]interface{}{
		"document_id":   result.Document.ID,
		"session_id":    req.SessionID,
		"chunks_stored": len(result.Stored),
	}
	if result.Document.SourceURL != "" {
		response["url"] = result.Document.SourceURL
		response["content_type"] = result.Document.ContentType
	}
	if result.Document.Filename != "" {
		response["filename"] = result.Document.Filename
	}
	if len(result.Failed) > 0 {
		failures := make([]map[string]interface{}, len(result.Failed))
		for i, f := range result.Failed {
			failures[i] = map[string]interface{}{
				"offset": f.Offset,
				"error":  f.Err.Error(),
			}
		}
		response["chunks_failed"] = failures
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQuerySession handles the query_session tool invocation
func (s *Server) handleQuerySession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	topK := getIntDefault(args, "top_k", retriever.DefaultTopK)
	if topK < 1 || topK > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	result, err := s.coordinator.Query(ctx, retriever.QueryRequest{
		SessionID: getStringDefault(args, "session_id", ""),
		Prompt:    getStringDefault(args, "prompt", ""),
		TopK:      topK,
		Mode:      retriever.Mode(getStringDefault(args, "mode", string(retriever.ModeVector))),
	})
	if err != nil {
		return nil, mapPipelineError(err)
	}

	chunks := make([]map[string]interface{}, len(result.Chunks))
	for i, c := range result.Chunks {
		chunk := map[string]interface{}{
			"id":          c.ID,
			"document_id": c.DocumentID,
			"offset":      c.Offset,
			"content":     c.Content,
			"score":       c.Score,
		}
		if c.Filename != "" {
			chunk["filename"] = c.Filename
		}
		if c.DocumentGroupID != "" {
			chunk["document_group_id"] = c.DocumentGroupID
		}
		if c.InteractionID != "" {
			chunk["interaction_id"] = c.InteractionID
		}
		chunks[i] = chunk
	}

	response := map[string]interface{}{
		"context": result.Context,
		"chunks":  chunks,
		"count":   len(chunks),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleExtractText handles the extract_text tool invocation
func (s *Server) handleExtractText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	url := getStringDefault(args, "url", "")
	if url == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	}

	doc, err := s.coordinator.Extract(ctx, url)
	if err != nil {
		return nil, mapPipelineError(err)
	}

	response := map[string]interface{}{
		"url":          doc.SourceURL,
		"content_type": doc.ContentType,
		"text":         doc.Text,
	}
	if doc.Filename != "" {
		response["filename"] = doc.Filename
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePurgeSession handles the purge_session tool invocation
func (s *Server) handlePurgeSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sessionID := getStringDefault(args, "session_id", "")
	documentID := getStringDefault(args, "document_id", "")

	response := map[string]interface{}{
		"session_id": sessionID,
	}
	if documentID != "" {
		deleted, err := s.coordinator.PurgeDocument(ctx, sessionID, documentID)
		if err != nil {
			return nil, mapPipelineError(err)
		}
		remaining, err := s.store.CountSession(ctx, sessionID)
		if err != nil {
			return nil, mapPipelineError(err)
		}
		response["document_id"] = documentID
		response["records_deleted"] = deleted
		response["records_remaining"] = remaining
	} else {
		deleted, err := s.coordinator.PurgeSession(ctx, sessionID)
		if err != nil {
			return nil, mapPipelineError(err)
		}
		response["records_deleted"] = deleted
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.coordinator.Status(ctx)
	if err != nil {
		return nil, mapPipelineError(err)
	}

	response := map[string]interface{}{
		"store": map[string]interface{}{
			"records":          status.Store.Records,
			"sessions":         status.Store.Sessions,
			"documents":        status.Store.Documents,
			"dimension":        status.Store.Dimension,
			"database_size_mb": fmt.Sprintf("%.2f", status.Store.DatabaseSizeMB),
			"build_mode":       status.Store.BuildMode,
			"schema_version":   status.Store.SchemaVersion,
		},
		"embedding": map[string]interface{}{
			"provider":  status.Provider,
			"model":     status.Model,
			"dimension": status.Dimension,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// mapPipelineError translates a typed pipeline error into an MCP error
func mapPipelineError(err error) error {
	code := ErrorCodeInternalError
	switch types.KindOf(err) {
	case types.KindValidation:
		code = ErrorCodeInvalidParams
	case types.KindFetchFailure:
		code = ErrorCodeFetchFailed
	case types.KindUnsupportedContentType, types.KindParseFailure:
		code = ErrorCodeUnsupportedContentType
	case types.KindEmbeddingFailure:
		code = ErrorCodeEmbeddingFailed
	case types.KindDimensionMismatch:
		code = ErrorCodeDimensionMismatch
	case types.KindNotFound:
		code = ErrorCodeNotFound
	}
	return newMCPError(code, err.Error(), nil)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
