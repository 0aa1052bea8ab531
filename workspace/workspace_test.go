package workspace

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"

	seederrors "github.com/randalmurphal/seedrepo/errors"
)

func writeTemplate(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

var template = map[string]string{
	"README.md":                         "# skeleton",
	"package.json":                      "{}",
	"docs/.gitkeep":                     "",
	"src/index.ts":                      "export {}",
	"src/lib/util.ts":                   "export const x = 1",
	"node_modules/left-pad/index.js":    "module.exports = 1",
	"web/node_modules/react/index.js":   "module.exports = 2",
	"tools/__pycache__/mod.cpython.pyc": "\x00\x01",
	"api/.venv/bin/python":              "#!",
}

func relPaths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RelPath
	}
	return out
}

func TestStage_CopiesTemplateWithoutDependencyCaches(t *testing.T) {
	src := writeTemplate(t, template)

	s := &Stager{TempRoot: t.TempDir()}
	ws, err := s.Stage(context.Background(), src)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer ws.Close()

	entries, err := Enumerate(ws.Path(), nil)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	want := []string{"README.md", "docs/.gitkeep", "package.json", "src/index.ts", "src/lib/util.ts"}
	got := relPaths(entries)
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := os.Stat(filepath.Join(ws.Path(), "node_modules")); !os.IsNotExist(err) {
		t.Error("node_modules should not be copied")
	}
	data, err := os.ReadFile(filepath.Join(ws.Path(), "src", "lib", "util.ts"))
	if err != nil || string(data) != "export const x = 1" {
		t.Errorf("util.ts = %q, %v", data, err)
	}
}

func TestStage_PreservesExecutableBit(t *testing.T) {
	src := writeTemplate(t, map[string]string{"scripts/setup.sh": "#!/bin/sh"})
	if err := os.Chmod(filepath.Join(src, "scripts", "setup.sh"), 0o755); err != nil {
		t.Fatal(err)
	}

	ws, err := (&Stager{TempRoot: t.TempDir()}).Stage(context.Background(), src)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer ws.Close()

	info, err := os.Stat(filepath.Join(ws.Path(), "scripts", "setup.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("mode = %v, want executable", info.Mode().Perm())
	}
}

func TestStage_MissingTemplate(t *testing.T) {
	tempRoot := t.TempDir()
	_, err := (&Stager{TempRoot: tempRoot}).Stage(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, seederrors.ErrIO) {
		t.Fatalf("err = %v, want IO failure", err)
	}

	left, _ := os.ReadDir(tempRoot)
	if len(left) != 0 {
		t.Errorf("temp root not empty after failed stage: %d entries", len(left))
	}
}

func TestStage_CancelledContextRemovesTempDir(t *testing.T) {
	src := writeTemplate(t, template)
	tempRoot := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Stager{TempRoot: tempRoot}).Stage(ctx, src)
	if !errors.Is(err, seederrors.ErrIO) {
		t.Fatalf("err = %v, want IO failure", err)
	}
	left, _ := os.ReadDir(tempRoot)
	if len(left) != 0 {
		t.Errorf("temp dir left behind: %v", left)
	}
}

func TestWorkspace_CloseIsIdempotent(t *testing.T) {
	src := writeTemplate(t, map[string]string{"a.txt": "a"})
	ws, err := (&Stager{TempRoot: t.TempDir()}).Stage(context.Background(), src)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	ws.Close()
	if _, err := os.Stat(ws.Path()); !os.IsNotExist(err) {
		t.Errorf("workspace still exists after Close: %v", err)
	}
	ws.Close()
}

func TestEnumerate_MatchesIndependentScan(t *testing.T) {
	root := writeTemplate(t, map[string]string{
		"a.txt":       "a",
		"b/c.txt":     "c",
		"b/d/e.bin":   "\x00",
		"b/d/f/g.txt": "g",
		"empty/.keep": "",
	})
	if err := os.MkdirAll(filepath.Join(root, "really", "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	var scanned []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			scanned = append(scanned, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(scanned)

	entries, err := Enumerate(root, nil)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	got := relPaths(entries)
	if len(got) != len(scanned) {
		t.Fatalf("Enumerate = %v, scan = %v", got, scanned)
	}
	for i := range scanned {
		if got[i] != scanned[i] {
			t.Errorf("entry[%d] = %q, want %q", i, got[i], scanned[i])
		}
		if entries[i].AbsPath != filepath.Join(root, filepath.FromSlash(scanned[i])) {
			t.Errorf("AbsPath = %q", entries[i].AbsPath)
		}
	}

	again, err := Enumerate(root, nil)
	if err != nil || len(again) != len(entries) {
		t.Errorf("second Enumerate = %d entries, %v", len(again), err)
	}
}

func TestEnumerate_MissingRoot(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "gone"), nil)
	if !errors.Is(err, seederrors.ErrIO) {
		t.Errorf("err = %v, want IO failure", err)
	}
}

func TestPruner(t *testing.T) {
	p := NewPruner("dist/", "*.log", "build")

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"node_modules", true, true},
		{"packages/app/node_modules", true, true},
		{"node_modules", false, false},
		{"src/node_modules.ts", false, false},
		{"__pycache__", true, true},
		{"dist", true, true},
		{"build", true, true},
		{"build", false, false},
		{"debug.log", false, false},
		{"docs/notes.log", false, false},
		{"logs/old.log", true, true},
		{"src/main.go", false, false},
		{".", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := p.Skip(tt.path, tt.isDir); got != tt.want {
				t.Errorf("Skip(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestStage_Symlinks(t *testing.T) {
	src := writeTemplate(t, map[string]string{
		"README.md":         "# skeleton",
		"shared/config.yml": "key: value",
	})
	links := map[string]string{
		"config.yml": "shared/config.yml", // file
		"linked":     "shared",            // directory
		"dangling":   "missing.txt",
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(src, name)); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
	}

	ws, err := (&Stager{TempRoot: t.TempDir()}).Stage(context.Background(), src)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer ws.Close()

	info, err := os.Lstat(filepath.Join(ws.Path(), "config.yml"))
	if err != nil {
		t.Fatalf("file symlink not copied: %v", err)
	}
	if !info.Mode().IsRegular() {
		t.Errorf("config.yml mode = %v, want regular file", info.Mode())
	}
	data, _ := os.ReadFile(filepath.Join(ws.Path(), "config.yml"))
	if string(data) != "key: value" {
		t.Errorf("config.yml = %q", data)
	}

	for _, name := range []string{"linked", "dangling"} {
		if _, err := os.Lstat(filepath.Join(ws.Path(), name)); !os.IsNotExist(err) {
			t.Errorf("%s should be skipped, err = %v", name, err)
		}
	}

	entries, err := Enumerate(ws.Path(), nil)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	want := []string{"README.md", "config.yml", "shared/config.yml"}
	if got := relPaths(entries); !slices.Equal(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
}
