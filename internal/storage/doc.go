// Package storage persists embedded chunks in SQLite and serves similarity
// and keyword search over them.
//
// Each row in the records table is one chunk with its embedding vector stored
// as a little-endian float32 blob. Records are append-only: they are never
// updated after insertion and are removed only by explicit session or
// document purge. Every read and search is scoped to a session id, which is
// how session isolation is enforced at the lowest layer.
//
// The store fixes its vector dimension on the first insert. Later inserts
// and searches with a different dimension fail with a typed dimension error
// rather than silently truncating or padding vectors.
//
// Vector search computes cosine similarity. Two paths exist, selected at
// build time:
//
//   - purego (default): modernc.org/sqlite, candidate vectors are loaded and
//     scored in Go. No C compiler needed, works everywhere.
//   - sqlite_vec tag: mattn/go-sqlite3 with the sqlite-vec extension, scoring
//     happens inside SQL for larger stores.
//
// Both paths produce identical ordering: score descending, then chunk offset
// ascending, then document id ascending, so results are deterministic even
// with tied scores.
//
// Keyword search uses an FTS5 mirror of record content kept in sync by
// triggers, ranked by BM25 and normalized to (0, 1].
//
// Schema changes go through semver-tagged migrations applied on open.
package storage
