package legacy

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// EntryKind is the rough shape of a legacy changelog entry, used to give
// the conversion prompt some context about what it is rewriting.
type EntryKind string

const (
	KindUnreleased EntryKind = "unreleased"
	KindMarkdown   EntryKind = "markdown"
	KindBulletList EntryKind = "bullet_list"
	KindOther      EntryKind = "other"
)

var (
	markdownHeading = regexp.MustCompile(`(?m)^#+\s+`)
	bulletLine      = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)

	// versionWithDate captures "## 1.2.3 - 2024-10-24" and "## [1.2.3] - 2024-10-24" style headings
	versionWithDate = regexp.MustCompile(`(?:##|###)?\s*\[?v?(\d+\.\d+(?:\.\d+)?(?:-\w+(?:\.\d+)?)?)\]?(?:\s*[-\x{2013}]\s*(\d{4}-\d{2}-\d{2}))?`)

	unreleasedKeywords = []string{"unreleased", "upcoming", "next release", "in development"}
)

// ExtractEntryFromDiff pulls the added lines out of a changelog file's diff,
// which is the text of the entry being introduced by the PR. Returns the
// empty string when the diff adds nothing.
func ExtractEntryFromDiff(diffContent string) string {
	var added []string
	inHunk := false

	for _, line := range strings.Split(diffContent, "\n") {
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added = append(added, strings.TrimPrefix(line, "+"))
		}
	}

	return strings.TrimSpace(strings.Join(added, "\n"))
}

// ClassifyEntry detects the rough format of a legacy entry. Unreleased
// markers win over markdown headings since "## Unreleased" contains both.
func ClassifyEntry(entryText string) EntryKind {
	lower := strings.ToLower(entryText)
	for _, kw := range unreleasedKeywords {
		if strings.Contains(lower, kw) {
			return KindUnreleased
		}
	}
	if markdownHeading.MatchString(entryText) {
		return KindMarkdown
	}
	if bulletLine.MatchString(entryText) {
		return KindBulletList
	}
	return KindOther
}

// ExtractVersion finds a version number and optional ISO date in a legacy
// entry heading. The version is parsed leniently, so "1.2" is accepted.
func ExtractVersion(entryText string) (*semver.Version, string) {
	m := versionWithDate.FindStringSubmatch(entryText)
	if m == nil {
		return nil, ""
	}

	version, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, ""
	}

	date := ""
	if len(m) > 2 {
		date = m[2]
	}
	return version, date
}

// EntryContext bundles what the conversion flow needs to know about a
// legacy entry: its shape, the version heading if one is present, and a
// short summary for logs. Version is empty when no heading was found.
type EntryContext struct {
	Kind    EntryKind
	Version string
	Date    string
	Summary string
}

// NewEntryContext classifies an entry and extracts its version heading
func NewEntryContext(entryText string) EntryContext {
	ec := EntryContext{
		Kind:    ClassifyEntry(entryText),
		Summary: Summary(entryText),
	}
	if version, date := ExtractVersion(entryText); version != nil {
		ec.Version = version.String()
		ec.Date = date
	}
	return ec
}

// Summary condenses an entry for logging and prompt context
func Summary(entryText string) string {
	flat := strings.TrimSpace(strings.ReplaceAll(entryText, "\n", " "))
	if len(flat) > 100 {
		return flat[:100] + "..."
	}
	return flat
}
