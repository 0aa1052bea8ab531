// Package document materializes caller-supplied planning documents into a
// staged workspace.
//
// Core types:
//   - Source: sealed sum type, either PathSource or BufferSource
//   - Mode: orchestration mode selecting the instruction file
//   - Merger: writes documents under docs/ plus one instruction file
package document
