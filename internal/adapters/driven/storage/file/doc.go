// Package file provides a filesystem-backed knowledge store.
//
// Each knowledge record is one YAML document at
// <knowledge_dir>/<type dir>/<id>.yaml, so the knowledge base can be
// reviewed and committed alongside the project. Writes go through a temp
// file and a rename so a reader never observes a half-written record.
package file
