// Package file provides the TOML-backed settings store.
//
// Settings live at <project>/.xtctx/config.toml. Keys missing from the file
// fall back to domain.DefaultSettings; durations are Go duration strings
// such as "30s" or "300ms".
package file
