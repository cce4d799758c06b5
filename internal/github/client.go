// Package github wraps the GitHub API operations changelog-guard needs:
// listing PR files, fetching raw diffs, and reporting findings back to the PR.
package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/alan/changelog-guard/cmd"
)

// Client wraps the GitHub API client for one repository
type Client struct {
	client *github.Client
	ctx    context.Context
	owner  string
	repo   string
}

// NewClient creates a new GitHub client with token authentication.
// baseURL overrides the API endpoint for GitHub Enterprise; pass "" or the
// public API URL for github.com.
func NewClient(ctx context.Context, token, baseURL, owner, repo string) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	gh := github.NewClient(tc)
	if baseURL != "" && baseURL != "https://api.github.com" {
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
		}
	}

	return &Client{
		client: gh,
		ctx:    ctx,
		owner:  owner,
		repo:   repo,
	}, nil
}

// GetPR fetches the metadata of a pull request, including its commit authors
func (c *Client) GetPR(number int) (*cmd.PRInfo, error) {
	pr, _, err := c.client.PullRequests.Get(c.ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PR #%d: %w", number, err)
	}

	info := &cmd.PRInfo{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HeadSHA: pr.GetHead().GetSHA(),
		User: cmd.PRUser{
			Login:   pr.GetUser().GetLogin(),
			HTMLURL: pr.GetUser().GetHTMLURL(),
		},
	}
	for _, label := range pr.Labels {
		info.Labels = append(info.Labels, cmd.PRLabel{Name: label.GetName()})
	}

	commits, err := c.listCommits(number)
	if err != nil {
		// Commit authors only enrich the generated entry; the PR itself
		// is still usable without them.
		return info, nil
	}
	info.Commits = commits

	return info, nil
}

// listCommits fetches the commits of a PR, keeping only the author logins
func (c *Client) listCommits(number int) ([]cmd.PRCommit, error) {
	opts := &github.ListOptions{PerPage: 100}

	var all []cmd.PRCommit
	for {
		commits, resp, err := c.client.PullRequests.ListCommits(c.ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits for PR #%d: %w", number, err)
		}
		for _, commit := range commits {
			all = append(all, cmd.PRCommit{
				Author: cmd.PRUser{Login: commit.GetAuthor().GetLogin()},
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListPRFiles returns the paths of all files modified in a pull request
func (c *Client) ListPRFiles(number int) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}

	var files []string
	for {
		batch, resp, err := c.client.PullRequests.ListFiles(c.ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list files for PR #%d: %w", number, err)
		}
		for _, f := range batch {
			files = append(files, f.GetFilename())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

// GetPRDiff fetches the raw unified diff of a pull request
func (c *Client) GetPRDiff(number int) (string, error) {
	diff, _, err := c.client.PullRequests.GetRaw(c.ctx, c.owner, c.repo, number,
		github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("failed to fetch diff for PR #%d: %w", number, err)
	}
	return diff, nil
}

// GetFileContent fetches the contents of a file at the PR head ref
func (c *Client) GetFileContent(path, ref string) (string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	content, _, _, err := c.client.Repositories.GetContents(c.ctx, c.owner, c.repo, path, opts)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return text, nil
}

// Comment reports a finding back to the PR using the configured mode
func (c *Client) Comment(number int, body string, mode cmd.CommentMode) error {
	switch mode {
	case cmd.CommentModeNone:
		return nil
	case cmd.CommentModeReview:
		return c.reviewComment(number, body)
	default:
		return c.issueComment(number, body)
	}
}

// issueComment posts a plain comment on the PR conversation
func (c *Client) issueComment(number int, body string) error {
	comment := &github.IssueComment{Body: github.String(body)}
	_, _, err := c.client.Issues.CreateComment(c.ctx, c.owner, c.repo, number, comment)
	if err != nil {
		return fmt.Errorf("failed to comment on PR #%d: %w", number, err)
	}
	return nil
}

// reviewComment posts a COMMENT-event review so the finding shows up in the
// review timeline. Falls back to an issue comment when review creation is
// rejected, which happens for PRs authored by the token owner.
func (c *Client) reviewComment(number int, body string) error {
	review := &github.PullRequestReviewRequest{
		Body:  github.String(body),
		Event: github.String("COMMENT"),
	}
	_, _, err := c.client.PullRequests.CreateReview(c.ctx, c.owner, c.repo, number, review)
	if err != nil {
		if strings.Contains(err.Error(), "422") {
			return c.issueComment(number, body)
		}
		return fmt.Errorf("failed to create review on PR #%d: %w", number, err)
	}
	return nil
}

// SplitRepository splits an "owner/name" repository string
func SplitRepository(repository string) (string, string, error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be in owner/name form, got %q", repository)
	}
	return parts[0], parts[1], nil
}
