// Package mcp exposes the retrieval pipeline as an MCP (Model Context
// Protocol) server over stdio.
//
// Six tools are registered:
//
//   - ingest_chunk: store one pre-chunked text span in a session
//   - ingest_document: fetch or accept a document, chunk it, and store it
//   - query_session: retrieve the most relevant chunks for a prompt
//   - extract_text: fetch a URL and return its plain text without storing
//   - purge_session: delete every record in a session, or one document's records
//   - get_status: report store contents and embedding configuration
//
// Handlers translate tool arguments into coordinator calls and map the
// pipeline's typed errors onto MCP error codes. Because the protocol runs on
// stdout, all logging must go to stderr.
package mcp
