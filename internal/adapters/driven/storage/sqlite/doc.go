// Package sqlite provides the persistent side of the embedding index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements driven.IndexStore over
// three tables:
//
//   - documents: one row per ingested source with a completeness marker
//   - chunks: the text windows of each document
//   - embeddings: one vector per chunk, tagged with the embedding model
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// The database lives at <index dir>/index.db. An OS file lock on
// <index dir>/index.lock keeps a second process from writing the same index.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
