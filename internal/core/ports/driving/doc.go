// Package driving declares what the CLI, the MCP server and the browser may
// ask of the core: search, knowledge reads and writes, and ingestion control.
// internal/core/services implements every interface here.
package driving
