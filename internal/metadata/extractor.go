// Package metadata derives issue references and tracker links from pull
// request text for inclusion in changelog entries.
package metadata

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alan/changelog-guard/cmd"
	"github.com/alan/changelog-guard/internal/config"
)

// issueKeywords are the reference keywords recognized in front of #N
// GitHub issue references. Kept as data so the set stays auditable.
var issueKeywords = []string{
	"fixes", "fixed",
	"closes", "closed",
	"resolves", "resolved",
	"references", "refs",
	"see",
	"issue", "issues",
}

// githubIssuePattern matches "<keyword> #123" case-insensitively,
// compiled once at package init.
var githubIssuePattern = regexp.MustCompile(
	`(?i)\b(?:` + strings.Join(issueKeywords, "|") + `)\s*#(\d+)`)

// urlPattern matches literal http(s) URLs in free text
var urlPattern = regexp.MustCompile(`https?://[^\s)\]>,<"']+`)

// idPlaceholder is the substitution marker in external issue URL templates
const idPlaceholder = "{id}"

// Config controls which detections run and how external trackers are matched
type Config struct {
	GitHubIssueDetection     bool
	ExternalIssueRegex       string
	ExternalIssueURLTemplate string
	IssueTrackerURLDetection bool
}

// Metadata is the extraction result merged into generated or validated entries
type Metadata struct {
	MergeRequests []int
	Issues        []int
	Links         []cmd.Link
}

// Extractor derives metadata from PR text according to its configuration.
// Construct with New so configuration problems surface before extraction.
type Extractor struct {
	cfg         Config
	externalRE  *regexp.Regexp
	trackerHost string
}

// New builds an Extractor, compiling the external issue regex and parsing
// the URL template host up front. A regex that does not compile or a
// template without the {id} placeholder is a configuration error, never a
// silent zero-match extractor.
func New(cfg Config) (*Extractor, error) {
	e := &Extractor{cfg: cfg}

	if cfg.ExternalIssueRegex != "" {
		re, err := regexp.Compile(cfg.ExternalIssueRegex)
		if err != nil {
			return nil, &config.Error{Msg: fmt.Sprintf("external issue regex %q does not compile: %v", cfg.ExternalIssueRegex, err)}
		}
		if cfg.ExternalIssueURLTemplate == "" {
			return nil, &config.Error{Msg: "external issue regex configured without a URL template"}
		}
		e.externalRE = re
	}

	if cfg.ExternalIssueURLTemplate != "" {
		if !strings.Contains(cfg.ExternalIssueURLTemplate, idPlaceholder) {
			return nil, &config.Error{Msg: fmt.Sprintf("external issue URL template %q is missing the %s placeholder",
				cfg.ExternalIssueURLTemplate, idPlaceholder)}
		}
		sample := strings.ReplaceAll(cfg.ExternalIssueURLTemplate, idPlaceholder, "0")
		parsed, err := url.Parse(sample)
		if err != nil {
			return nil, &config.Error{Msg: fmt.Sprintf("external issue URL template %q is not a valid URL: %v", cfg.ExternalIssueURLTemplate, err)}
		}
		e.trackerHost = parsed.Host
	}

	return e, nil
}

// Extract scans the PR title and body and returns all detected metadata.
// Sets are deduplicated; link order is first-seen order in the scanned text.
func (e *Extractor) Extract(pr cmd.PRInfo) Metadata {
	text := pr.Title + "\n" + pr.Body

	md := Metadata{}
	if pr.Number > 0 {
		md.MergeRequests = []int{pr.Number}
	}

	if e.cfg.GitHubIssueDetection {
		md.Issues = e.githubIssues(text)
	}

	links, externalURLs := e.externalIssueLinks(text)
	md.Links = links

	if e.cfg.IssueTrackerURLDetection {
		md.Links = append(md.Links, e.trackerURLs(pr.Body, externalURLs)...)
	}

	return md
}

// githubIssues collects #N references preceded by a recognized keyword,
// deduplicated and sorted.
func (e *Extractor) githubIssues(text string) []int {
	matches := githubIssuePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var issues []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		issues = append(issues, n)
	}
	sort.Ints(issues)
	return issues
}

// externalIssueLinks turns external tracker matches into links, deduplicated
// by the matched token. The second return value is the set of generated URLs
// so tracker URL detection does not add them twice.
func (e *Extractor) externalIssueLinks(text string) ([]cmd.Link, map[string]bool) {
	urls := make(map[string]bool)
	if e.externalRE == nil {
		return nil, urls
	}

	var links []cmd.Link
	seen := make(map[string]bool)
	for _, m := range e.externalRE.FindAllStringSubmatch(text, -1) {
		token := m[0]
		if seen[token] {
			continue
		}
		id := firstCaptureGroup(m)
		if id == "" {
			continue
		}
		seen[token] = true
		u := strings.ReplaceAll(e.cfg.ExternalIssueURLTemplate, idPlaceholder, id)
		urls[u] = true
		links = append(links, cmd.Link{Name: token, URL: u})
	}
	return links, urls
}

// firstCaptureGroup returns the first non-empty capture group of a match
func firstCaptureGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// trackerURLs extracts literal URLs from the body and keeps only those on
// the configured tracker host. Generic documentation URLs are discarded
// rather than turned into links.
func (e *Extractor) trackerURLs(body string, known map[string]bool) []cmd.Link {
	if e.trackerHost == "" {
		return nil
	}

	var links []cmd.Link
	seen := make(map[string]bool)
	for _, raw := range urlPattern.FindAllString(body, -1) {
		raw = strings.TrimRight(raw, ".")
		if known[raw] || seen[raw] {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host != e.trackerHost {
			continue
		}
		seen[raw] = true
		links = append(links, cmd.Link{Name: linkName(parsed), URL: raw})
	}
	return links
}

// linkName derives a display name from the last non-empty path segment
func linkName(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return u.Host
}

// Section renders the extracted metadata as a human-readable block for
// inclusion in generation prompts.
func (m Metadata) Section() string {
	var lines []string

	if len(m.MergeRequests) > 0 {
		refs := make([]string, len(m.MergeRequests))
		for i, n := range m.MergeRequests {
			refs[i] = fmt.Sprintf("#%d", n)
		}
		lines = append(lines, "- Merge Requests: "+strings.Join(refs, ", "))
	}
	if len(m.Issues) > 0 {
		refs := make([]string, len(m.Issues))
		for i, n := range m.Issues {
			refs[i] = fmt.Sprintf("#%d", n)
		}
		lines = append(lines, "- Related Issues: "+strings.Join(refs, ", "))
	}
	if len(m.Links) > 0 {
		refs := make([]string, len(m.Links))
		for i, l := range m.Links {
			refs[i] = fmt.Sprintf("[%s](%s)", l.Name, l.URL)
		}
		lines = append(lines, "- Links: "+strings.Join(refs, ", "))
	}

	if len(lines) == 0 {
		return "No additional metadata found."
	}
	return strings.Join(lines, "\n")
}
