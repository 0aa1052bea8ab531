package workspace

import (
	"io/fs"
	"path/filepath"

	seederrors "github.com/randalmurphal/seedrepo/errors"
)

// Entry is one file to publish.
type Entry struct {
	RelPath string // Slash-separated path relative to the workspace root
	AbsPath string // Location on disk
}

// Enumerate lists every non-directory entry under root in lexical order,
// skipping pruned directories. It has no side effects and may be called
// repeatedly. Listing errors are IOFailure.
func Enumerate(root string, pruner *Pruner) ([]Entry, error) {
	if pruner == nil {
		pruner = NewPruner()
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if pruner.Skip(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		entries = append(entries, Entry{RelPath: rel, AbsPath: path})
		return nil
	})
	if err != nil {
		return nil, seederrors.New(stageWalk, seederrors.KindIO, err)
	}
	return entries, nil
}
