// Package testutil provides helpers shared by package tests: template
// trees on disk, test contexts, and an in-process fake of the GitHub git
// data API.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// SampleTemplate is a small project skeleton including dependency caches
// that staging must prune.
var SampleTemplate = map[string]string{
	"README.md":                       "# Project skeleton\n",
	"package.json":                    `{"name":"skeleton","private":true}`,
	"docs/.gitkeep":                   "",
	"src/index.ts":                    "export const ready = true;\n",
	"src/components/App.tsx":          "export function App() { return null }\n",
	"node_modules/left-pad/index.js":  "module.exports = () => ''\n",
	"web/node_modules/react/index.js": "module.exports = {}\n",
	"scripts/__pycache__/gen.pyc":     "\x00\x0d\x0d\x0a",
	"scripts/gen.py":                  "print('seed')\n",
}

// SampleTemplateFiles lists the SampleTemplate paths that survive pruning.
var SampleTemplateFiles = []string{
	"README.md",
	"docs/.gitkeep",
	"package.json",
	"scripts/gen.py",
	"src/components/App.tsx",
	"src/index.ts",
}

// WriteTree writes files (slash-separated relative path to content) under a
// new temp dir and returns its path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}

// ReadTree returns every regular file under root keyed by slash-separated
// relative path.
func ReadTree(t *testing.T, root string) map[string][]byte {
	t.Helper()
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read tree %s: %v", root, err)
	}
	return files
}

// TempFile creates a temporary file with the given content.
// Returns the file path. File is automatically cleaned up when the test ends.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to create temp file %s: %v", name, err)
	}

	return path
}

// Bytes returns n deterministic bytes covering the full byte range.
func Bytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 31 % 256)
	}
	return b
}
