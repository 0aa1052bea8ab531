package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLen bounds the slug part of a repository name.
const MaxSlugLen = 60

// DefaultRepoPrefix starts every generated repository name.
const DefaultRepoPrefix = "seed"

const fallbackSlug = "project"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases name, folds accents, collapses runs of other
// characters to "-", and truncates to MaxSlugLen. Never returns "".
func Slugify(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	slug := nonAlnum.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > MaxSlugLen {
		slug = strings.TrimRight(slug[:MaxSlugLen], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// RepoName returns "<prefix>-<slug>-<unix millis>". An empty prefix is omitted.
func RepoName(prefix, projectName string, now time.Time) string {
	name := fmt.Sprintf("%s-%d", Slugify(projectName), now.UnixMilli())
	if prefix == "" {
		return name
	}
	return prefix + "-" + name
}
