// Package mcp exposes the indexing engine to the editor host as an MCP
// stdio server.
//
// Tools map directly onto the engine API: index_start, index_stop,
// search_code, index_state, index_clear, delete_branch, delete_project.
// Lifecycle state events are written to the structured log; the editor
// shell renders progress from that stream.
package mcp
