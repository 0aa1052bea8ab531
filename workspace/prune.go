package workspace

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultPrunePatterns lists the dependency-cache directories skipped at any depth.
var DefaultPrunePatterns = []string{
	"node_modules/",
	"bower_components/",
	".pnpm-store/",
	"__pycache__/",
	".venv/",
}

// Pruner decides which workspace paths are excluded.
type Pruner struct {
	matcher gitignore.Matcher
}

// NewPruner creates a Pruner from DefaultPrunePatterns plus extra patterns.
// Patterns use gitignore syntax and only ever match directories: a missing
// trailing slash is added, so "*.md" prunes directories named *.md and
// never a file.
func NewPruner(extra ...string) *Pruner {
	patterns := make([]gitignore.Pattern, 0, len(DefaultPrunePatterns)+len(extra))
	for _, p := range append(append([]string{}, DefaultPrunePatterns...), extra...) {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	return &Pruner{matcher: gitignore.NewMatcher(patterns)}
}

// Skip reports whether the slash-separated relative path should be excluded.
func (p *Pruner) Skip(rel string, isDir bool) bool {
	if p == nil || rel == "" || rel == "." {
		return false
	}
	return p.matcher.Match(strings.Split(rel, "/"), isDir)
}
