package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	seederrors "github.com/randalmurphal/seedrepo/errors"
)

const stageMerge = "merge_documents"

// InstructionStore provides the per-mode instruction files.
type InstructionStore interface {
	Open(name string) (io.ReadCloser, error)
}

// Merger writes documents and the mode's instruction file into a workspace.
type Merger struct {
	instructions InstructionStore
	logger       *slog.Logger
}

// NewMerger creates a Merger reading instruction files from store.
// If logger is nil, uses the default slog logger.
func NewMerger(store InstructionStore, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{instructions: store, logger: logger}
}

// Merge writes docs in order under root/docs/ and copies the mode's
// instruction file to root. It returns the instruction file name.
//
// Failures are DocumentWriteFailure. Nothing written so far is removed;
// the workspace teardown owns cleanup.
func (m *Merger) Merge(ctx context.Context, root string, docs []Source, mode Mode) (string, error) {
	instruction, err := InstructionFilename(mode)
	if err != nil {
		return "", seederrors.New(stageMerge, seederrors.KindDocumentWrite, err)
	}

	docsDir := filepath.Join(root, DocsDir)
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return "", seederrors.New(stageMerge, seederrors.KindDocumentWrite, fmt.Errorf("create docs dir: %w", err))
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return "", seederrors.New(stageMerge, seederrors.KindDocumentWrite, err)
		}
		if err := writeDocument(docsDir, doc); err != nil {
			return "", seederrors.New(stageMerge, seederrors.KindDocumentWrite, err)
		}
		m.logger.Debug("document written", "stage", stageMerge, "target", doc.Target())
	}

	if err := m.copyInstruction(root, instruction); err != nil {
		return "", seederrors.New(stageMerge, seederrors.KindDocumentWrite, err)
	}

	m.logger.Info("documents merged", "stage", stageMerge, "count", len(docs), "instruction", instruction)
	return instruction, nil
}

func writeDocument(docsDir string, doc Source) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	if err := ValidateTarget(doc.Target()); err != nil {
		return err
	}
	dest := filepath.Join(docsDir, doc.Target())

	switch d := doc.(type) {
	case PathSource:
		if err := copyFile(d.Path, dest); err != nil {
			return fmt.Errorf("copy %s: %w", d.TargetName, err)
		}
	case BufferSource:
		if err := os.WriteFile(dest, d.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", d.TargetName, err)
		}
	default:
		return fmt.Errorf("unsupported document source %T", doc)
	}
	return nil
}

func (m *Merger) copyInstruction(root, name string) error {
	src, err := m.instructions.Open(name)
	if err != nil {
		return fmt.Errorf("open instruction file: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(root, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create instruction file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy instruction file: %w", err)
	}
	return dst.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
