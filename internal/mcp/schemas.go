package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestChunkTool returns the tool definition for ingest_chunk
func ingestChunkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_chunk",
		Description: "Embed and store one pre-chunked text span in a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session the chunk belongs to; queries only see their own session",
				},
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the source document",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Chunk text to embed and store",
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Byte offset of the chunk within its document",
					"default":     0,
					"minimum":     0,
				},
				"interaction_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation turn that produced this chunk",
				},
				"document_group_id": map[string]interface{}{
					"type":        "string",
					"description": "Group of related documents",
				},
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Display filename for provenance",
				},
			},
			Required: []string{"session_id", "document_id", "content"},
		},
	}
}

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Fetch a URL or accept raw text, chunk it, embed the chunks, and store them in a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to store the document's chunks in",
				},
				"url": map[string]interface{}{
					"type":        "string",
					"description": "HTTP(S) URL to fetch; exactly one of url or text is required",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Raw document text; exactly one of url or text is required",
				},
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document identifier; generated when omitted",
				},
				"document_group_id": map[string]interface{}{
					"type":        "string",
					"description": "Group of related documents",
				},
				"interaction_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation turn that triggered the ingestion",
				},
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Display filename; derived from the URL when omitted",
				},
			},
			Required: []string{"session_id"},
		},
	}
}

// querySessionTool returns the tool definition for query_session
func querySessionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_session",
		Description: "Retrieve the chunks most relevant to a prompt from one session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to search; other sessions are never visible",
				},
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "Query text to embed and match against stored chunks",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to return (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Ranking strategy: vector (cosine similarity), keyword (BM25), or hybrid (fusion of both)",
					"enum":        []string{"vector", "keyword", "hybrid"},
					"default":     "vector",
				},
			},
			Required: []string{"session_id", "prompt"},
		},
	}
}

// extractTextTool returns the tool definition for extract_text
func extractTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "extract_text",
		Description: "Fetch a URL and return its plain text without storing anything",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "HTTP(S) URL to fetch and convert to plain text",
				},
			},
			Required: []string{"url"},
		},
	}
}

// purgeSessionTool returns the tool definition for purge_session
func purgeSessionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "purge_session",
		Description: "Delete every stored chunk in a session, or a single document's chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session whose records are removed",
				},
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "When set, only this document's records are removed; the rest of the session stays",
				},
			},
			Required: []string{"session_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report store contents and the active embedding configuration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
