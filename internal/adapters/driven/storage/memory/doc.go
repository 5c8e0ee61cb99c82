// Package memory provides in-memory implementations of the driven store ports.
// They back tests and `xtctx ingest --dry-run`; nothing survives the process.
package memory
