// Package diff reduces a raw unified diff to a token-bounded context
// suitable for LLM prompt construction.
package diff

import (
	"strings"
)

// EstimateCharsPerToken is the character-to-token conversion factor used
// for budgeting. It is a rough proxy, not a real tokenizer; swapping in a
// different estimator shifts truncation boundaries but nothing else.
var EstimateCharsPerToken = 4

// TruncationMarker is inserted where hunk lines were dropped from a file.
const TruncationMarker = "... (diff truncated due to size limits) ..."

// FileStatus describes how a file changed in the diff
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
	StatusRenamed  FileStatus = "renamed"
)

// File is one per-file segment of the diff
type File struct {
	Path      string
	Status    FileStatus
	Lines     []string
	Tokens    int
	Truncated bool
}

// Context is the token-bounded diff handed to prompt construction.
// Files keep their original diff order. TotalTokens never exceeds the
// global budget passed to Truncate.
type Context struct {
	Files        []File
	TotalTokens  int
	OmittedFiles int
	Truncated    bool
}

// Render reassembles the context into diff text
func (c Context) Render() string {
	var b strings.Builder
	for _, f := range c.Files {
		for _, line := range f.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// EstimateTokens estimates the token count of a text fragment
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + EstimateCharsPerToken - 1) / EstimateCharsPerToken
}

// Truncate splits rawDiff into per-file segments and accumulates them into
// a Context bounded by maxTokensContext overall and maxTokensPerFile per
// file. It never fails: oversized input degrades by truncating hunks and
// omitting trailing files, signalled via the Truncated flags and the
// omitted-file count.
func Truncate(rawDiff string, maxTokensContext, maxTokensPerFile int) Context {
	files := splitFiles(rawDiff)
	if len(files) == 0 {
		return Context{}
	}

	ctx := Context{}
	for i, f := range files {
		if f.Tokens > maxTokensPerFile {
			f = truncateFile(f, maxTokensPerFile)
		}

		remaining := maxTokensContext - ctx.TotalTokens
		if f.Tokens > remaining {
			// A first file larger than the whole budget is squeezed down
			// to the remaining budget rather than dropped, so generation
			// always sees at least part of the change.
			if i == 0 && remaining > 0 {
				f = truncateFile(f, remaining)
			} else {
				ctx.OmittedFiles = len(files) - i
				ctx.Truncated = true
				break
			}
		}

		ctx.Files = append(ctx.Files, f)
		ctx.TotalTokens += f.Tokens
		if f.Truncated {
			ctx.Truncated = true
		}
	}

	return ctx
}

// splitFiles splits a unified diff at "diff --git" boundaries, preserving order
func splitFiles(rawDiff string) []File {
	trimmed := strings.TrimRight(rawDiff, "\n")
	if strings.TrimSpace(trimmed) == "" {
		return nil
	}

	lines := strings.Split(trimmed, "\n")
	var files []File
	var current *File

	flush := func() {
		if current != nil {
			current.Tokens = EstimateTokens(strings.Join(current.Lines, "\n") + "\n")
			files = append(files, *current)
			current = nil
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			current = &File{
				Path:   parseFilePath(line),
				Status: StatusModified,
			}
		}
		if current == nil {
			// Preamble before the first file marker belongs to no file;
			// treat the whole input as a single unnamed segment.
			current = &File{Status: StatusModified}
		}
		switch {
		case strings.HasPrefix(line, "new file mode"):
			current.Status = StatusAdded
		case strings.HasPrefix(line, "deleted file mode"):
			current.Status = StatusDeleted
		case strings.HasPrefix(line, "rename from "):
			current.Status = StatusRenamed
		}
		current.Lines = append(current.Lines, line)
	}
	flush()

	return files
}

// parseFilePath extracts the new-side path from a "diff --git a/x b/x" line
func parseFilePath(line string) string {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return ""
	}
	return strings.TrimPrefix(parts[3], "b/")
}

// truncateFile keeps leading and trailing lines of a file segment around an
// explicit marker so the result fits within budget tokens. The recomputed
// estimate is guaranteed not to exceed the budget.
func truncateFile(f File, budget int) File {
	budgetChars := budget * EstimateCharsPerToken
	markerCost := len(TruncationMarker) + 1

	if budgetChars <= markerCost {
		// Too small to hold even the marker; keep the file present but
		// empty so the estimate stays within budget.
		f.Lines = nil
		f.Tokens = 0
		f.Truncated = true
		return f
	}

	available := budgetChars - markerCost
	headBudget := available / 2
	tailBudget := available - headBudget

	var head []string
	used := 0
	for _, line := range f.Lines {
		cost := len(line) + 1
		if used+cost > headBudget {
			break
		}
		head = append(head, line)
		used += cost
	}

	var tail []string
	used = 0
	for i := len(f.Lines) - 1; i > len(head)-1; i-- {
		cost := len(f.Lines[i]) + 1
		if used+cost > tailBudget {
			break
		}
		tail = append([]string{f.Lines[i]}, tail...)
		used += cost
	}

	kept := make([]string, 0, len(head)+1+len(tail))
	kept = append(kept, head...)
	kept = append(kept, TruncationMarker)
	kept = append(kept, tail...)

	f.Lines = kept
	f.Tokens = EstimateTokens(strings.Join(kept, "\n") + "\n")
	f.Truncated = true
	return f
}
