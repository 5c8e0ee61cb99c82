// Package services holds the xtctx core: the ingestion coordinator and its
// daemon, hybrid search over the record store, and the knowledge write
// pipeline with deduplication and supersession.
//
// Everything here talks to infrastructure through the driven ports only.
package services
