package check

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alan/changelog-guard/cmd"
	"github.com/alan/changelog-guard/internal/commands"
	"github.com/alan/changelog-guard/internal/config"
	"github.com/alan/changelog-guard/internal/metadata"
	"github.com/alan/changelog-guard/internal/validator"
)

// fakeClient implements prClient against canned data and records comments
type fakeClient struct {
	pr       *cmd.PRInfo
	files    []string
	diff     string
	contents map[string]string
	comments []string
}

func (f *fakeClient) GetPR(int) (*cmd.PRInfo, error)    { return f.pr, nil }
func (f *fakeClient) ListPRFiles(int) ([]string, error) { return f.files, nil }
func (f *fakeClient) GetPRDiff(int) (string, error)     { return f.diff, nil }

func (f *fakeClient) GetFileContent(path, _ string) (string, error) {
	return f.contents[path], nil
}

func (f *fakeClient) Comment(_ int, body string, _ cmd.CommentMode) error {
	f.comments = append(f.comments, body)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func newChecker(t *testing.T, cfg *config.Config, client *fakeClient) *checker {
	t.Helper()
	t.Setenv("GITHUB_OUTPUT", "")

	extractor, err := metadata.New(commands.MetadataConfig(cfg))
	require.NoError(t, err)

	return &checker{
		cfg:       cfg,
		client:    client,
		validator: validator.New(commands.ValidatorPolicy(cfg)),
		extractor: extractor,
		outputs:   commands.NewOutputWriter(),
	}
}

func TestCheckerValidEntryPasses(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 1, Title: "Fix bug", User: cmd.PRUser{Login: "alice"}},
		files: []string{"src/main.go", "changelog/unreleased/pr-1-fix-bug.yml"},
		contents: map[string]string{
			"changelog/unreleased/pr-1-fix-bug.yml": "title: Fix bug\ntype: fixed\n",
		},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 1)

	require.NoError(t, err)
	assert.Empty(t, client.comments)
}

func TestCheckerInvalidEntryFails(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 1, Title: "Fix bug", User: cmd.PRUser{Login: "alice"}},
		files: []string{"changelog/unreleased/pr-1.yml"},
		contents: map[string]string{
			"changelog/unreleased/pr-1.yml": "type: improvement\n",
		},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 1)

	require.Error(t, err)
	require.Len(t, client.comments, 1)
	assert.Contains(t, client.comments[0], "missing mandatory field: title")
	assert.Contains(t, client.comments[0], "❌")
}

func TestCheckerInvalidEntryWarnsWhenWorkflowPasses(t *testing.T) {
	cfg := testConfig(t)
	cfg.ValidationFailWorkflow = false
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 1, Title: "Fix bug", User: cmd.PRUser{Login: "alice"}},
		files: []string{"changelog/unreleased/pr-1.yml"},
		contents: map[string]string{
			"changelog/unreleased/pr-1.yml": "type: improvement\n",
		},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, client.comments, 1)
	assert.Contains(t, client.comments[0], "⚠️")
}

func TestCheckerMissingEntryFail(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 2, Title: "Refactor", User: cmd.PRUser{Login: "alice"}},
		files: []string{"src/main.go"},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 2)

	require.Error(t, err)
	assert.Equal(t, cfg.MissingEntryMessage, err.Error())
	require.Len(t, client.comments, 1)
	assert.Contains(t, client.comments[0], cfg.MissingEntryMessage)
}

func TestCheckerMissingEntryWarn(t *testing.T) {
	cfg := testConfig(t)
	cfg.OnMissingEntry = cmd.MissingWarn
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 2, Title: "Refactor", User: cmd.PRUser{Login: "alice"}},
		files: []string{"src/main.go"},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, client.comments, 1)
	assert.Contains(t, client.comments[0], "⚠️")
}

func TestCheckerSkipLabel(t *testing.T) {
	cfg := testConfig(t)
	cfg.SkipChangelogLabels = []string{"skip-changelog"}
	client := &fakeClient{
		pr: &cmd.PRInfo{
			Number: 3,
			Labels: []cmd.PRLabel{{Name: "skip-changelog"}},
			User:   cmd.PRUser{Login: "alice"},
		},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 3)

	require.NoError(t, err)
	assert.Empty(t, client.comments)
}

func TestCheckerSkipFilesPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.SkipFilesRegex = regexp.MustCompile(`docs/.*`)
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 4, User: cmd.PRUser{Login: "alice"}},
		files: []string{"docs/a.md", "docs/b.md"},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 4)

	require.NoError(t, err)
	assert.Empty(t, client.comments)
}

func TestCheckerLegacyConflictFail(t *testing.T) {
	cfg := testConfig(t)
	cfg.OnLegacyAndStructured = cmd.ConflictFail
	client := &fakeClient{
		pr: &cmd.PRInfo{Number: 5, User: cmd.PRUser{Login: "alice"}},
		files: []string{
			"CHANGELOG.md",
			"changelog/unreleased/pr-5.yml",
		},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 5)

	require.Error(t, err)
	assert.Equal(t, cfg.LegacyConflictMessage, err.Error())
}

func TestCheckerLegacyConflictWarnStillValidates(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{
		pr: &cmd.PRInfo{Number: 5, User: cmd.PRUser{Login: "alice"}},
		files: []string{
			"CHANGELOG.md",
			"changelog/unreleased/pr-5.yml",
		},
		contents: map[string]string{
			"changelog/unreleased/pr-5.yml": "title: Fix bug\ntype: fixed\n",
		},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, client.comments, 1)
	assert.Contains(t, client.comments[0], cfg.LegacyConflictMessage)
}

func TestCheckerLegacyEntryFail(t *testing.T) {
	cfg := testConfig(t)
	cfg.OnLegacyEntry = cmd.LegacyFail
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 6, User: cmd.PRUser{Login: "alice"}},
		files: []string{"CHANGELOG.md"},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 6)

	require.Error(t, err)
	assert.Equal(t, cfg.LegacyEntryMessage, err.Error())
}

func TestCheckerDryRunSuppressesComments(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 7, User: cmd.PRUser{Login: "alice"}},
		files: []string{"src/main.go"},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 7)

	require.Error(t, err)
	assert.Empty(t, client.comments)
}

func TestCheckerCommentModeNone(t *testing.T) {
	cfg := testConfig(t)
	cfg.CommentMode = cmd.CommentModeNone
	client := &fakeClient{
		pr:    &cmd.PRInfo{Number: 8, User: cmd.PRUser{Login: "alice"}},
		files: []string{"src/main.go"},
	}

	c := newChecker(t, cfg, client)
	err := c.run(context.Background(), 8)

	require.Error(t, err)
	assert.Empty(t, client.comments)
}

func TestFileDiff(t *testing.T) {
	raw := "diff --git a/a.go b/a.go\n+one\n" +
		"diff --git a/CHANGELOG.md b/CHANGELOG.md\n+two\n"

	section := fileDiff(raw, "CHANGELOG.md")
	assert.Contains(t, section, "+two")
	assert.NotContains(t, section, "+one")

	// Unknown files fall back to the whole diff
	assert.Equal(t, raw, fileDiff(raw, "missing.go"))
}

func TestEventPRNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pull_request": {"number": 99}}`), 0o644))

	assert.Equal(t, 99, eventPRNumber(path))
	assert.Equal(t, 0, eventPRNumber(""))
	assert.Equal(t, 0, eventPRNumber(filepath.Join(t.TempDir(), "absent.json")))
}

func TestResolveTarget(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "")
	t.Setenv("GITHUB_EVENT_NAME", "")
	t.Setenv("GITHUB_EVENT_PATH", "")

	target, err := resolveTarget("acme/widgets", 12)
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, "acme", target.owner)
	assert.Equal(t, "widgets", target.repo)
	assert.Equal(t, 12, target.number)

	_, err = resolveTarget("", 12)
	assert.Error(t, err)

	_, err = resolveTarget("not-a-repo", 12)
	assert.Error(t, err)
}

func TestResolveTargetNonPREvent(t *testing.T) {
	t.Setenv("GITHUB_EVENT_NAME", "push")

	target, err := resolveTarget("acme/widgets", 0)

	require.NoError(t, err)
	assert.Nil(t, target)
}
