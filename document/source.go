package document

import (
	"fmt"
	"strings"
)

// Mode selects which instruction file is published.
type Mode string

// Orchestration modes.
const (
	ModeFull  Mode = "full"
	ModeLight Mode = "light"
)

// Instruction file names, one per mode.
const (
	InstructionFull  = "orch-full.md"
	InstructionLight = "orch-light.md"
)

// DocsDir is the workspace-relative directory receiving documents.
const DocsDir = "docs"

// Standard document target names.
const (
	TargetBrief        = "brief.md"
	TargetPRD          = "prd.md"
	TargetArchitecture = "architecture.md"
	TargetFrontend     = "front-end-spec.md"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeLight:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeFull, ModeLight)
}

// InstructionFilename returns the instruction file for a mode.
func InstructionFilename(m Mode) (string, error) {
	switch m {
	case ModeFull:
		return InstructionFull, nil
	case ModeLight:
		return InstructionLight, nil
	}
	return "", fmt.Errorf("unknown mode %q", m)
}

// Source is a document to publish. The only implementations are
// PathSource and BufferSource.
type Source interface {
	// Target is the file name under docs/.
	Target() string
	isSource()
}

// PathSource reads a document from the trusted local template store.
type PathSource struct {
	TargetName string // File name under docs/
	Path       string // Absolute or working-dir-relative source path
}

// BufferSource carries an uploaded document in memory.
type BufferSource struct {
	TargetName   string // File name under docs/
	Content      []byte // Raw bytes, written verbatim
	OriginalName string // Name of the file as uploaded
	ArchivedURL  string // Archive location recorded by the caller (optional)
}

func (s PathSource) Target() string   { return s.TargetName }
func (s BufferSource) Target() string { return s.TargetName }

func (PathSource) isSource()   {}
func (BufferSource) isSource() {}

// ValidateTarget checks that a target is a bare file name.
func ValidateTarget(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid document target %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("document target %q must not contain path separators", name)
	}
	return nil
}
