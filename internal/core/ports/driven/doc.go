// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SourceAdapter: Extracts conversation items from one AI tool's local store
//   - CheckpointStore: Per-source watermark persistence
//   - RecordStore: Record persistence with vector and keyword search
//   - KnowledgeStore: Knowledge record persistence, grouped by type
//   - EmbeddingService: Generates vector embeddings
//   - SettingsStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SimilarityLookup: Without it every knowledge write is created.
//   - ChangeWatcher: Without it the daemon only polls.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
