// Package orchestrator runs one repository-seeding attempt end to end:
// stage the template, merge documents, walk the tree, publish, and
// assemble the result.
//
// Staging happens first and its workspace is removed when Run returns,
// on every path. The remaining stages run as a flowgraph pipeline:
//
//	merge_documents → walk_tree → publish → assemble_result
//
// Run is all-or-nothing. It returns a complete Result or an error carrying
// the failing stage (see package errors), never both.
package orchestrator
