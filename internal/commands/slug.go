package commands

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const maxSlugLength = 50

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// EntryFilename builds a changelog entry filename from a PR number and
// title, in the form pr-<number>-<slug>.yml. An empty or fully
// non-alphanumeric title yields pr-<number>.yml.
func EntryFilename(prNumber int, title string) string {
	slug := Slugify(title)
	if slug == "" {
		return fmt.Sprintf("pr-%d.yml", prNumber)
	}
	return fmt.Sprintf("pr-%d-%s.yml", prNumber, slug)
}

// EntryPath joins the changelog directory and the entry filename.
func EntryPath(changelogPath string, prNumber int, title string) string {
	return path.Join(changelogPath, EntryFilename(prNumber, title))
}

// Slugify lowercases the title, collapses runs of non-alphanumeric
// characters into single hyphens, and trims the result to a filename
// friendly length.
func Slugify(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
