package legacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const changelogDiff = `diff --git a/CHANGELOG.md b/CHANGELOG.md
index 3f1a2b4..9c8e7d6 100644
--- a/CHANGELOG.md
+++ b/CHANGELOG.md
@@ -1,4 +1,8 @@
 # Changelog

+## Unreleased
+
+- Fixed crash when config file is missing
+
 ## [1.1.0] - 2024-09-01
`

func TestExtractEntryFromDiff(t *testing.T) {
	entry := ExtractEntryFromDiff(changelogDiff)

	assert.Contains(t, entry, "## Unreleased")
	assert.Contains(t, entry, "- Fixed crash when config file is missing")
	assert.NotContains(t, entry, "# Changelog")
	assert.NotContains(t, entry, "1.1.0")
}

func TestExtractEntryFromDiffNothingAdded(t *testing.T) {
	diff := `diff --git a/CHANGELOG.md b/CHANGELOG.md
--- a/CHANGELOG.md
+++ b/CHANGELOG.md
@@ -1,2 +1,1 @@
 # Changelog
-## Old entry
`

	assert.Empty(t, ExtractEntryFromDiff(diff))
}

func TestClassifyEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  EntryKind
	}{
		{"unreleased heading", "## Unreleased\n- fix things", KindUnreleased},
		{"upcoming keyword", "Upcoming changes:\n- fix things", KindUnreleased},
		{"markdown heading", "## 1.2.0\n- fix things", KindMarkdown},
		{"bullet list", "- fixed a bug\n- added a flag", KindBulletList},
		{"plain text", "Fixed a bug in the parser", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEntry(tt.entry))
		})
	}
}

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name        string
		entry       string
		wantVersion string
		wantDate    string
	}{
		{"version with date", "## 1.2.3 - 2024-10-24\n### Fixed", "1.2.3", "2024-10-24"},
		{"bracketed version", "## [2.0.1] - 2024-01-05", "2.0.1", "2024-01-05"},
		{"version only", "### v0.4.0", "0.4.0", ""},
		{"two component version", "## 1.2\n- stuff", "1.2.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, date := ExtractVersion(tt.entry)

			require.NotNil(t, version)
			assert.Equal(t, tt.wantVersion, version.String())
			assert.Equal(t, tt.wantDate, date)
		})
	}
}

func TestExtractVersionNoMatch(t *testing.T) {
	version, date := ExtractVersion("## Unreleased\n- stuff")

	assert.Nil(t, version)
	assert.Empty(t, date)
}

func TestNewEntryContext(t *testing.T) {
	ec := NewEntryContext("## [2.0.1] - 2024-01-05\n- Fixed the parser crash")

	assert.Equal(t, KindMarkdown, ec.Kind)
	assert.Equal(t, "2.0.1", ec.Version)
	assert.Equal(t, "2024-01-05", ec.Date)
	assert.Contains(t, ec.Summary, "Fixed the parser crash")
}

func TestNewEntryContextUnversioned(t *testing.T) {
	ec := NewEntryContext("- fixed a bug\n- added a flag")

	assert.Equal(t, KindBulletList, ec.Kind)
	assert.Empty(t, ec.Version)
	assert.Empty(t, ec.Date)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "short entry", Summary("  short entry\n"))

	long := Summary(strings.Repeat("y", 150))
	assert.Len(t, long, 103)
	assert.True(t, strings.HasSuffix(long, "..."))
}
