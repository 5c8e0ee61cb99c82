// Package sqlite provides the SQLite-backed record and checkpoint stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. A single database file holds:
//
//   - RecordStore: embedded records for the "context" and "knowledge" tables,
//     with an FTS5 index for keyword search and float32 vectors for semantic search
//   - CheckpointStore: per-source extraction progress
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are tracked in schema_migrations.
//
// # Data Location
//
// The database lives at <data_dir>/xtctx.db, where data_dir defaults to
// <project>/.xtctx/data.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on SQLite's
// WAL mode and a busy timeout for cross-process access.
package sqlite
