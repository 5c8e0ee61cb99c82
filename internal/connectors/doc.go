// Package connectors holds the helpers shared by the source adapters that
// harvest conversation history from local AI coding tools.
//
// Each subpackage implements driven.SourceAdapter for one tool. Adapters read
// the tool's store read-only, skip malformed records, and persist their
// watermark through a driven.CheckpointStore keyed by the adapter name.
// Package builtin assembles the default adapter set from settings.
package connectors
