// Package legacy classifies heading-based changelog files that predate
// structured entries and extracts their content from PR diffs.
package legacy

import (
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reason says which rule classified a file as legacy
type Reason string

const (
	// ReasonFilename means the path matched a configured legacy pattern
	ReasonFilename Reason = "filename"
	// ReasonContent means the content heuristic found changelog headings
	ReasonContent Reason = "content"
)

// Detection is the result of classifying one file
type Detection struct {
	IsLegacy bool
	Reason   Reason
}

// versionHeading matches keep-a-changelog style version headings such as
// "## [1.2.3]", "## 1.2.3 - 2024-10-24", or "## v2.0".
var versionHeading = regexp.MustCompile(`(?m)^##\s*\[?v?\d+\.\d+(\.\d+)?`)

// categoryHeading matches section headings such as "### Added"
var categoryHeading = regexp.MustCompile(`(?m)^###\s+(Added|Changed|Deprecated|Removed|Fixed|Security)\b`)

// Detect classifies a file as a legacy changelog or not. A filename match
// against the configured patterns takes precedence and short-circuits the
// content scan; otherwise the content heuristic looks for changelog-section
// markers in files that are not structured YAML entries.
func Detect(filePath, content string, patterns []string) Detection {
	if matchesPattern(filePath, patterns) {
		return Detection{IsLegacy: true, Reason: ReasonFilename}
	}

	if countMarkers(content) > 0 && !isStructuredEntry(content) {
		return Detection{IsLegacy: true, Reason: ReasonContent}
	}

	return Detection{}
}

// matchesPattern reports whether filePath matches any configured pattern,
// by exact path, basename, or glob.
func matchesPattern(filePath string, patterns []string) bool {
	base := path.Base(filePath)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if filePath == pattern || base == pattern || strings.HasSuffix(filePath, "/"+pattern) {
			return true
		}
		if ok, err := path.Match(pattern, filePath); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// countMarkers counts changelog-section markers in the content
func countMarkers(content string) int {
	return len(versionHeading.FindAllString(content, -1)) +
		len(categoryHeading.FindAllString(content, -1))
}

// isStructuredEntry reports whether content parses as a YAML mapping, the
// shape of a structured changelog entry. Markdown changelogs do not.
func isStructuredEntry(content string) bool {
	var raw any
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return false
	}
	_, ok := raw.(map[string]any)
	return ok
}

// Conflict reports whether both legacy and structured changelog files are
// present in the same PR.
func Conflict(legacyFiles, structuredFiles []string) bool {
	return len(legacyFiles) > 0 && len(structuredFiles) > 0
}

// FindFiles returns the PR files matching the configured legacy patterns.
// With no patterns configured, legacy detection is disabled.
func FindFiles(prFiles, patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	var found []string
	for _, f := range prFiles {
		if matchesPattern(f, patterns) {
			found = append(found, f)
		}
	}
	return found
}
