// Package catalog discovers project templates: every markdown brief in the
// projects directory is one template.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/randalmurphal/seedrepo/ledger"
)

const briefExt = ".md"

// Scan lists the *.md files directly under dir as templates, sorted by
// slug. The slug is the file stem.
func Scan(dir string) ([]ledger.Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan templates in %s: %w", dir, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var templates []ledger.Template
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), briefExt) {
			continue
		}
		slug := e.Name()[:len(e.Name())-len(briefExt)]
		templates = append(templates, ledger.Template{
			Slug:      slug,
			Name:      DisplayName(slug),
			BriefPath: filepath.Join(abs, e.Name()),
		})
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Slug < templates[j].Slug })
	return templates, nil
}

// DisplayName derives a human-readable name from a slug: underscores become
// spaces, whitespace collapses, and a leading "PRD " is dropped.
func DisplayName(slug string) string {
	name := strings.Join(strings.Fields(strings.ReplaceAll(slug, "_", " ")), " ")
	return strings.TrimPrefix(name, "PRD ")
}
