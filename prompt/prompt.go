package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// embeddedPrompts holds the default instruction files.
//
//go:embed prompts/*.md
var embeddedPrompts embed.FS

// ErrNotFound indicates no search directory and no embedded file holds the name.
var ErrNotFound = errors.New("prompt not found")

// Store reads instruction files from a set of directories with an embedded fallback.
type Store struct {
	dirs []string // Directories to search
}

// NewStore creates a store searching dirs in order. Empty entries are ignored.
func NewStore(dirs ...string) *Store {
	s := &Store{}
	for _, dir := range dirs {
		if dir != "" {
			s.dirs = append(s.dirs, dir)
		}
	}
	return s
}

// AddSearchDir adds a directory searched before all existing ones.
func (s *Store) AddSearchDir(dir string) {
	s.dirs = append([]string{dir}, s.dirs...)
}

// Open returns a reader for the named file.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	for _, dir := range s.dirs {
		f, err := os.Open(filepath.Join(dir, name))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open prompt %s: %w", name, err)
		}
	}

	data, err := embeddedPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Read returns the full content of the named file.
func (s *Store) Read(name string) ([]byte, error) {
	rc, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Exists checks if a file can be opened.
func (s *Store) Exists(name string) bool {
	rc, err := s.Open(name)
	if err != nil {
		return false
	}
	rc.Close()
	return true
}

// List returns all available file names, sorted.
func (s *Store) List() ([]string, error) {
	names := make(map[string]bool)

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				names[entry.Name()] = true
			}
		}
	}

	entries, err := embeddedPrompts.ReadDir("prompts")
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				names[entry.Name()] = true
			}
		}
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid prompt name %q", name)
	}
	return nil
}
