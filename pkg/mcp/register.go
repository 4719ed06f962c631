package mcp

import "github.com/ekaya-inc/ekaya-engine/pkg/catalog"

// RegisterAll wires every resource template, tool, and prompt (spec §4.11)
// onto s, backed by store. Called once at startup before the streamable
// HTTP transport is mounted.
func RegisterAll(s *Server, store *catalog.ProjectStore) {
	RegisterResources(s, store)
	RegisterTools(s, store)
	RegisterPrompts(s, store)
}
