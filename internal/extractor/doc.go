// Package extractor fetches remote documents and converts them to plain text
// for chunking.
//
// The extractor owns the network boundary of the ingestion flow. It fetches a
// URL with a bounded, context-aware HTTP client, classifies the payload by
// content type (response header first, then URL extension, then content
// sniffing), and normalizes the supported formats to plain text:
//
//   - text/html is stripped of markup, scripts, and styles, with block
//     elements converted to paragraph breaks
//   - text/markdown passes through with light normalization, since markdown
//     is already readable text
//   - text/plain passes through unchanged apart from whitespace normalization
//
// Unsupported content types (images, PDFs, binaries) are rejected with a
// typed error rather than producing garbage chunks. Fetch failures carry the
// upstream HTTP status so callers can distinguish a 404 from a 503.
package extractor
