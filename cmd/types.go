// Package cmd defines core data structures shared by the changelog-guard commands.
package cmd

import (
	"sort"
	"strings"
)

// OnMissingEntry controls what happens when a PR has no changelog entry
type OnMissingEntry string

const (
	// MissingFail fails the workflow when no entry is found
	MissingFail OnMissingEntry = "fail"
	// MissingWarn posts a warning comment but lets the workflow pass
	MissingWarn OnMissingEntry = "warn"
	// MissingGenerate asks the LLM to generate an entry suggestion
	MissingGenerate OnMissingEntry = "generate"
)

// ParseOnMissingEntry converts a string to OnMissingEntry
func ParseOnMissingEntry(s string) (OnMissingEntry, bool) {
	switch strings.ToLower(s) {
	case "fail":
		return MissingFail, true
	case "warn":
		return MissingWarn, true
	case "generate":
		return MissingGenerate, true
	default:
		return MissingFail, false
	}
}

// OnLegacyEntry controls handling of changes to legacy changelog files
type OnLegacyEntry string

const (
	// LegacyConvert asks the LLM to convert the legacy entry to structured format
	LegacyConvert OnLegacyEntry = "convert"
	// LegacyWarn posts a warning comment but lets the workflow pass
	LegacyWarn OnLegacyEntry = "warn"
	// LegacyFail fails the workflow on legacy entries
	LegacyFail OnLegacyEntry = "fail"
)

// ParseOnLegacyEntry converts a string to OnLegacyEntry
func ParseOnLegacyEntry(s string) (OnLegacyEntry, bool) {
	switch strings.ToLower(s) {
	case "convert":
		return LegacyConvert, true
	case "warn":
		return LegacyWarn, true
	case "fail":
		return LegacyFail, true
	default:
		return LegacyConvert, false
	}
}

// OnConflict controls handling when both legacy and structured entries are present
type OnConflict string

const (
	// ConflictFail fails the workflow on mixed entry formats
	ConflictFail OnConflict = "fail"
	// ConflictWarn warns about mixed formats, then validates the structured entries
	ConflictWarn OnConflict = "warn"
	// ConflictIgnore silently validates the structured entries
	ConflictIgnore OnConflict = "ignore"
)

// ParseOnConflict converts a string to OnConflict
func ParseOnConflict(s string) (OnConflict, bool) {
	switch strings.ToLower(s) {
	case "fail":
		return ConflictFail, true
	case "warn":
		return ConflictWarn, true
	case "ignore":
		return ConflictIgnore, true
	default:
		return ConflictWarn, false
	}
}

// CommentMode controls how findings are reported back to the PR
type CommentMode string

const (
	// CommentModeIssue posts a plain issue comment on the PR
	CommentModeIssue CommentMode = "comment"
	// CommentModeReview posts a review comment on the PR
	CommentModeReview CommentMode = "review-comment"
	// CommentModeNone suppresses PR comments entirely
	CommentModeNone CommentMode = "none"
)

// ParseCommentMode converts a string to CommentMode
func ParseCommentMode(s string) (CommentMode, bool) {
	switch strings.ToLower(s) {
	case "comment":
		return CommentModeIssue, true
	case "review-comment":
		return CommentModeReview, true
	case "none":
		return CommentModeNone, true
	default:
		return CommentModeReview, false
	}
}

// Author identifies one contributor in a changelog entry
type Author struct {
	Name string `yaml:"name"`
	Nick string `yaml:"nick,omitempty"`
	URL  string `yaml:"url,omitempty"`
}

// Link is a named reference to an external resource (tracker issue, docs)
type Link struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Entry is a structured changelog entry in logchange format.
// Unknown holds field names present in the source document that are not
// part of the schema, so validation can report them instead of dropping them.
type Entry struct {
	Title          string   `yaml:"title,omitempty"`
	Type           string   `yaml:"type,omitempty"`
	Authors        []Author `yaml:"authors,omitempty"`
	Modules        []string `yaml:"modules,omitempty"`
	Issues         []int    `yaml:"issues,omitempty"`
	MergeRequests  []int    `yaml:"merge_requests,omitempty"`
	Links          []Link   `yaml:"links,omitempty"`
	ImportantNotes string   `yaml:"important_notes,omitempty"`

	Unknown []string `yaml:"-"`
}

// PRUser is the author of a pull request
type PRUser struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// PRLabel is a label attached to a pull request
type PRLabel struct {
	Name string `json:"name"`
}

// PRCommit is a commit on a pull request, carrying only the author login
type PRCommit struct {
	Author PRUser `json:"author"`
}

// PRInfo holds the pull request metadata consumed by extraction and generation.
// HeadSHA is the head commit, used to read entry files at the PR revision.
type PRInfo struct {
	Number  int        `json:"number"`
	Title   string     `json:"title"`
	Body    string     `json:"body"`
	User    PRUser     `json:"user"`
	Labels  []PRLabel  `json:"labels"`
	Commits []PRCommit `json:"commits"`
	HeadSHA string     `json:"-"`
}

// LabelNames returns the names of all labels on the PR
func (p PRInfo) LabelNames() []string {
	names := make([]string, 0, len(p.Labels))
	for _, l := range p.Labels {
		names = append(names, l.Name)
	}
	return names
}

// CommitAuthors returns the unique commit author logins, sorted
func (p PRInfo) CommitAuthors() []string {
	seen := make(map[string]bool)
	var authors []string
	for _, c := range p.Commits {
		login := c.Author.Login
		if login == "" || seen[login] {
			continue
		}
		seen[login] = true
		authors = append(authors, login)
	}
	sort.Strings(authors)
	return authors
}
