package workspace

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	seederrors "github.com/randalmurphal/seedrepo/errors"
)

const (
	stageStage   = "stage_workspace"
	stageWalk    = "walk_tree"
	tempPattern  = "seedrepo-*"
	defaultPerms = 0o644
)

// Stager copies templates into fresh temporary directories.
type Stager struct {
	TempRoot string  // Parent for temp dirs ("" uses os.TempDir)
	Pruner   *Pruner // Excluded paths (nil uses NewPruner())
	Logger   *slog.Logger
}

// Workspace is an exclusively owned temporary directory.
type Workspace struct {
	path      string
	logger    *slog.Logger
	closeOnce sync.Once
}

// Path returns the workspace root.
func (w *Workspace) Path() string {
	return w.path
}

// Close removes the workspace recursively. Removal errors are logged, not
// returned. Safe to call more than once.
func (w *Workspace) Close() error {
	w.closeOnce.Do(func() {
		if err := os.RemoveAll(w.path); err != nil {
			w.logger.Warn("failed to remove workspace", "stage", stageStage, "path", w.path, "error", err)
			return
		}
		w.logger.Debug("workspace removed", "stage", stageStage, "path", w.path)
	})
	return nil
}

// Stage creates a temp dir and copies templateRoot into it, skipping pruned
// directories. Failures are IOFailure; a partially populated temp dir is
// removed before returning.
func (s *Stager) Stage(ctx context.Context, templateRoot string) (*Workspace, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pruner := s.Pruner
	if pruner == nil {
		pruner = NewPruner()
	}

	info, err := os.Stat(templateRoot)
	if err != nil {
		return nil, seederrors.New(stageStage, seederrors.KindIO, fmt.Errorf("read template: %w", err))
	}
	if !info.IsDir() {
		return nil, seederrors.New(stageStage, seederrors.KindIO, fmt.Errorf("template %s is not a directory", templateRoot))
	}

	dir, err := os.MkdirTemp(s.TempRoot, tempPattern)
	if err != nil {
		return nil, seederrors.New(stageStage, seederrors.KindIO, fmt.Errorf("create temp dir: %w", err))
	}
	ws := &Workspace{path: dir, logger: logger}

	copied, err := copyTree(ctx, templateRoot, dir, pruner, logger)
	if err != nil {
		ws.Close()
		return nil, seederrors.New(stageStage, seederrors.KindIO, err)
	}

	logger.Info("workspace staged", "stage", stageStage, "path", dir, "files", copied)
	return ws, nil
}

// copyTree copies regular files and directories. A symlink to a regular
// file is copied as that file's content; other symlinks and special files
// are skipped.
func copyTree(ctx context.Context, src, dst string, pruner *Pruner, logger *slog.Logger) (int, error) {
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if pruner.Skip(filepath.ToSlash(rel), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err = os.Stat(path); err != nil {
				logger.Debug("skipping dangling symlink", "stage", stageStage, "path", rel, "error", err)
				return nil
			}
		}
		if !info.Mode().IsRegular() {
			logger.Debug("skipping non-regular file", "stage", stageStage, "path", rel, "mode", info.Mode().String())
			return nil
		}
		if err := copyFile(path, target, info.Mode().Perm()); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		copied++
		return nil
	})
	return copied, err
}

func copyFile(src, dst string, perm fs.FileMode) error {
	if perm == 0 {
		perm = defaultPerms
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
