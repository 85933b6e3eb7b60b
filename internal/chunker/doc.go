// Package chunker splits normalized document text into ordered, offset-tracked
// spans suitable for independent embedding.
//
// Chunking is pure and deterministic: the same text and policy always produce
// the same spans, so a document can be re-chunked without re-fetching and
// tests are reproducible. Each span records its byte offset into the original
// text, offsets are monotonically increasing, and the spans cover the text
// end to end. With a non-zero overlap, each span after the first begins up to
// Overlap bytes before the point where the previous span ended.
//
// The default policy splits on paragraph boundaries while respecting a maximum
// size, falling back to hard fixed-size splitting when a single paragraph
// exceeds the maximum.
package chunker
