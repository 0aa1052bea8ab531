// Package prompt provides the read-only prompts store holding the
// orchestration instruction files published into every repository.
//
// Lookup order for a file name:
//  1. Each configured search directory, most recently added first
//  2. Instruction files embedded in the binary
//
// Example usage:
//
//	store := prompt.NewStore("resources/prompts")
//	data, err := store.Read("orch-full.md")
//
// RenderHTML converts instruction markdown to HTML for notification bodies.
package prompt
