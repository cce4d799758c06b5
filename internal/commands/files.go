package commands

import (
	"regexp"
	"strings"
)

// ChangelogFiles returns the PR files that are changelog entries: files
// under the configured changelog path with a .yml or .yaml extension.
func ChangelogFiles(prFiles []string, changelogPath string) []string {
	var out []string
	for _, f := range prFiles {
		if !strings.Contains(f, changelogPath) {
			continue
		}
		if strings.HasSuffix(f, ".yml") || strings.HasSuffix(f, ".yaml") {
			out = append(out, f)
		}
	}
	return out
}

// AllFilesSkipped reports whether every PR file matches the skip
// pattern. A nil pattern or an empty file list never skips.
func AllFilesSkipped(prFiles []string, pattern *regexp.Regexp) bool {
	if pattern == nil || len(prFiles) == 0 {
		return false
	}
	for _, f := range prFiles {
		loc := pattern.FindStringIndex(f)
		if loc == nil || loc[0] != 0 {
			return false
		}
	}
	return true
}

// HasSkipLabel reports whether any PR label is in the configured skip
// list. Comparison is case-insensitive.
func HasSkipLabel(labels, skipLabels []string) bool {
	for _, sl := range skipLabels {
		for _, l := range labels {
			if strings.EqualFold(l, sl) {
				return true
			}
		}
	}
	return false
}
