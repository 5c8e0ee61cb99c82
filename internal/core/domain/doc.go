// Package domain defines the core business entities for xtctx.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Item: One unit of conversation content harvested from an AI tool
//   - Checkpoint: A per-source watermark for incremental extraction
//   - Record: The searchable, embedded representation of an Item
//   - KnowledgeRecord: An explicitly authored decision, error/solution or insight
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
