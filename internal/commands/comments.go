package commands

import (
	"fmt"
	"strings"
)

// FailureLevel selects the emoji and wording used in PR comments
// depending on whether the workflow is configured to fail.
func FailureLevel(failWorkflow bool) (emoji, level string) {
	if failWorkflow {
		return "❌", "failed"
	}
	return "⚠️", "warning"
}

// ValidationFailureComment formats the comment posted when a changelog
// entry fails validation.
func ValidationFailureComment(filePath, message string, errors []string, failWorkflow bool) string {
	emoji, level := FailureLevel(failWorkflow)

	heading := strings.ToUpper(level[:1]) + level[1:]
	if level == "warning" {
		heading += "s"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **Changelog validation failed**: %s\n\n", emoji, message)
	fmt.Fprintf(&b, "**File**: %s\n", filePath)
	fmt.Fprintf(&b, "**%s**:\n", heading)
	for _, e := range errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	return b.String()
}

// SuggestionComment formats a generated changelog entry as a PR comment
// telling the author where to put it.
func SuggestionComment(entryYAML, filePath string) string {
	return fmt.Sprintf(`✨ **I've generated a changelog entry for you!**

Here's the suggested entry for `+"`%s`"+`:

`+"```yaml\n%s\n```"+`

**To use this:**
1. Create a new file at `+"`%s`"+`
2. Copy the YAML above into it
3. Feel free to edit before merging
`, filePath, strings.TrimSpace(entryYAML), filePath)
}

// ConversionComment formats a converted legacy changelog entry as a PR
// comment, including the steps to replace the legacy change.
func ConversionComment(entryYAML, legacyFile, filePath string) string {
	return fmt.Sprintf(`🔄 **I've converted the legacy changelog entry to structured format!**

I detected a change to `+"`%s`"+` and converted it to the entry below.

**Suggested entry** for `+"`%s`"+`:

`+"```yaml\n%s\n```"+`

**What to do next:**

1. ✅ **Create** the structured entry:
   - Create a new file at `+"`%s`"+`
   - Copy the YAML above into it

2. ⚠️ **Revert** the legacy change:
   - Remove or revert your changes to `+"`%s`"+`
   - OR update `+"`%s`"+` to not include this entry (if it has multiple)

3. 📝 **Review** before merging:
   - Check the generated entry is accurate
   - Adjust if needed
`, legacyFile, filePath, strings.TrimSpace(entryYAML), filePath, legacyFile, legacyFile)
}
