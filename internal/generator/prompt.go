package generator

import (
	"fmt"
	"strings"

	"github.com/alan/changelog-guard/cmd"
	"github.com/alan/changelog-guard/internal/legacy"
	"github.com/alan/changelog-guard/internal/metadata"
)

const defaultSystemPrompt = `You are an expert software engineer specializing in changelog management.
Your task is to generate a structured YAML changelog entry based on the provided pull request information.

Create a changelog entry that:
1. Has a clear, concise title describing the change, most often in a single sentence. Break long titles (>80 chars) using YAML line continuation syntax.
2. Includes the MOST SPECIFIC and ACCURATE type for the change
3. Lists relevant authors with proper structure
4. Extracts issue numbers from the PR description (Fixes #123, closes #456, etc.) as an 'issues' field with numbers only (no '#')
5. Uses only valid entry fields

IMPORTANT: If the PR description contradicts the actual code changes (shown in the diff), prioritize the code changes over the description. The diff represents the actual implementation and is more reliable than potentially outdated PR descriptions.

Always output ONLY valid YAML that can be parsed directly, with no additional text or markdown formatting.
The YAML should be a single object with the required fields.`

const importantNotesInstruction = `## Important Notes

Consider whether to add an 'important_notes' field to highlight:
- Breaking changes
- Security implications
- Major deprecations
- Migration guidance needed
- Performance impacts
- Database migration requirements

Only include 'important_notes' if the change significantly impacts users or requires attention during upgrades.`

// composeSystemPrompt builds the system prompt from the default template,
// the configured rules, and the language instruction. A custom system
// prompt replaces the rule sections entirely; its author owns them.
func (g *Generator) composeSystemPrompt() string {
	var parts []string

	if g.opts.SystemPrompt != "" {
		parts = append(parts, g.opts.SystemPrompt)
	} else {
		parts = append(parts, defaultSystemPrompt)
		parts = append(parts, g.fieldRulesSection())
		if g.opts.GenerateImportantNotes {
			parts = append(parts, importantNotesInstruction)
		}
	}

	if g.opts.Language != "" && g.opts.Language != "English" {
		parts = append(parts, "Write the entry in "+g.opts.Language+".")
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// fieldRulesSection renders the allowed fields, types, and forbidden fields
// as prompt instructions so the model self-checks before answering.
func (g *Generator) fieldRulesSection() string {
	types := strings.Join(g.opts.ChangelogTypes, ", ")

	forbidden := []string{
		"- references (not a valid entry field)",
		"- contributors (use authors instead)",
		"- fixes (use issues instead)",
	}
	for _, f := range g.opts.ForbiddenFields {
		forbidden = append(forbidden, fmt.Sprintf("- %s (forbidden by configuration)", f))
	}

	return fmt.Sprintf(`## YAML Field Validation Rules

VALID ENTRY FIELDS (only these allowed):
- title (required, string, break long titles at ~80 chars with YAML continuation)
- type (required, must be one of: %s)
- authors (list of {name, nick?, url?})
- modules (optional, list of strings)
- issues (optional, list of NUMBERS ONLY, no '#' symbol)
- links (optional, list of {name, url})
- important_notes (optional, string)
- merge_requests (optional, list of numbers)

INVALID FIELDS - DO NOT USE:
%s

## Self-Inspection Before Output

BEFORE outputting the YAML, verify:
1. type: Is it exactly one of the allowed types (%s)? Be precise, not just "changed" for everything
2. authors: Is it a list? Each entry has a 'name' field?
3. issues: Contains ONLY numbers (e.g., 123, not "#123")?
4. All fields: NO hallucinated or forbidden fields?
5. YAML syntax: Valid YAML that parses without errors?

If you find any violations, CORRECT THEM before outputting the final YAML.`, types, strings.Join(forbidden, "\n"), types)
}

// BuildUserMessage assembles the generation prompt from the PR metadata,
// the extracted references, and the truncated diff.
func (g *Generator) BuildUserMessage(pr cmd.PRInfo, diffText string, md metadata.Metadata) string {
	body := pr.Body
	if body == "" {
		body = "(No description provided)"
	}

	labels := "None"
	if names := pr.LabelNames(); len(names) > 0 {
		labels = strings.Join(names, ", ")
	}

	authorsSection := ""
	if authors := pr.CommitAuthors(); len(authors) > 0 {
		all := append([]string{pr.User.Login}, exclude(authors, pr.User.Login)...)
		authorsSection = "**Contributors to this PR:**\n" + strings.Join(all, ", ")
	}

	rules := []string{}
	if len(g.opts.MandatoryFields) > 0 {
		rules = append(rules, "- REQUIRED fields: "+strings.Join(g.opts.MandatoryFields, ", "))
	}
	if len(g.opts.ForbiddenFields) > 0 {
		rules = append(rules, "- FORBIDDEN fields: "+strings.Join(g.opts.ForbiddenFields, ", "))
	}
	if len(rules) == 0 {
		rules = append(rules, "- Standard entry format (title, type, authors)")
	}

	return fmt.Sprintf(`Generate a structured changelog entry for the following pull request:

**PR Title:** %s

**PR Description:**
%s

**Primary Author:** %s

%s

**Labels:** %s

**Allowed entry types:**
%s

**Detected metadata:**
%s

**Validation Rules:**
%s

**Changes:**
`+"```diff\n%s\n```"+`

Based on the above information, generate a valid YAML entry that accurately describes this change.
Make sure the generated YAML is valid and can be parsed directly. Output ONLY the YAML with no additional text.`,
		pr.Title, body, pr.User.Login, authorsSection, labels,
		strings.Join(g.opts.ChangelogTypes, ", "), md.Section(),
		strings.Join(rules, "\n"), diffText)
}

// BuildConversionMessage assembles the prompt used to convert a legacy
// changelog entry into structured format, including a relevance check
// against the actual code changes.
func (g *Generator) BuildConversionMessage(entryText string, pr cmd.PRInfo, ec legacy.EntryContext, diffText string) string {
	relevance := ""
	if diffText != "" {
		if len(diffText) > 1500 {
			diffText = diffText[:1500] + "..."
		}
		relevance = fmt.Sprintf(`IMPORTANT - RELEVANCE CHECK:
Before conversion, verify that the changelog entry is actually relevant to the PR changes:
- Look at the PR diff to understand what code actually changed
- If the entry is CLEARLY UNRELATED to the code changes, REJECT by returning: title: "IRRELEVANT_ENTRY"
- Only convert entries reasonably related to or describing the actual code changes

PR Code Changes (diff):
`+"```\n%s\n```\n", diffText)
	}

	return fmt.Sprintf(`I have extracted a changelog entry from a legacy changelog file.
I need to convert it into structured YAML while preserving the original text and intent.

%s
CONVERSION INSTRUCTIONS:
1. **Preserve the original text**: Keep the wording and meaning as-is when relevant
2. **Gentle rewriting only**: Only rewrite if it is grammatically incorrect or unclear
3. **Extract metadata**: Look for issue links (#123, etc.) and additional contributors mentioned in the text
4. **Determine type**: Infer the type from the content. Allowed types: %s
5. **Create title**: Use the existing entry text or PR title to create a clear, concise title
6. **Output format**: Output ONLY valid YAML with no additional text, markdown, or comments

Legacy Changelog Entry:
`+"```\n%s\n```"+`

PR Title: %s

PR Author: %s

Entry Type Detected: %s
%s
**IMPORTANT: Always include the authors field**
- The authors field must include at least the PR author (%s)
- Extract any additional authors from the legacy entry text if mentioned

Now convert this into the structured format:`,
		relevance, strings.Join(g.opts.ChangelogTypes, ", "),
		entryText, pr.Title, pr.User.Login, ec.Kind,
		versionLine(ec), pr.User.Login)
}

// versionLine renders the version heading found in the legacy entry, so
// the model knows the entry targets a released version rather than the
// unreleased section.
func versionLine(ec legacy.EntryContext) string {
	if ec.Version == "" {
		return ""
	}
	line := "\nVersion Heading: " + ec.Version
	if ec.Date != "" {
		line += " (" + ec.Date + ")"
	}
	return line + "\n"
}

// retryPrompt appends validation feedback to the original prompt so the
// model can correct the specific violations.
func retryPrompt(original string, validationErrors []string) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nYour previous generated changelog entry had validation errors. Please fix these issues:\n\n")
	for _, e := range validationErrors {
		b.WriteString("  - ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	b.WriteString("\nTry again, ensuring your output addresses each validation error above. Output ONLY the corrected YAML.")
	return b.String()
}

func exclude(items []string, skip string) []string {
	var out []string
	for _, item := range items {
		if item != skip {
			out = append(out, item)
		}
	}
	return out
}
