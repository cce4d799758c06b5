package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationFailureComment(t *testing.T) {
	errs := []string{"missing mandatory field: title", "invalid type \"bogus\""}

	failed := ValidationFailureComment("changelog/unreleased/pr-1.yml", "Entry does not comply", errs, true)
	assert.Contains(t, failed, "❌")
	assert.Contains(t, failed, "**Failed**:")
	assert.Contains(t, failed, "changelog/unreleased/pr-1.yml")
	assert.Contains(t, failed, "- missing mandatory field: title")

	warned := ValidationFailureComment("changelog/unreleased/pr-1.yml", "Entry does not comply", errs, false)
	assert.Contains(t, warned, "⚠️")
	assert.Contains(t, warned, "**Warnings**:")
}

func TestSuggestionComment(t *testing.T) {
	got := SuggestionComment("title: Fix bug\ntype: fixed\n", "changelog/unreleased/pr-5-fix-bug.yml")

	assert.Contains(t, got, "✨")
	assert.Contains(t, got, "`changelog/unreleased/pr-5-fix-bug.yml`")
	assert.Contains(t, got, "```yaml\ntitle: Fix bug\ntype: fixed\n```")
}

func TestConversionComment(t *testing.T) {
	got := ConversionComment("title: Fix bug\n", "CHANGELOG.md", "changelog/unreleased/pr-5.yml")

	assert.Contains(t, got, "🔄")
	assert.Contains(t, got, "`CHANGELOG.md`")
	assert.Contains(t, got, "`changelog/unreleased/pr-5.yml`")
	assert.Contains(t, got, "**Revert** the legacy change")
}

func TestFailureLevel(t *testing.T) {
	emoji, level := FailureLevel(true)
	assert.Equal(t, "❌", emoji)
	assert.Equal(t, "failed", level)

	emoji, level = FailureLevel(false)
	assert.Equal(t, "⚠️", emoji)
	assert.Equal(t, "warning", level)
}
