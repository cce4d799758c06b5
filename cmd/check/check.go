// Package check implements the check command that enforces changelog
// entries on pull requests.
package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alan/changelog-guard/cmd"
	"github.com/alan/changelog-guard/internal/commands"
	"github.com/alan/changelog-guard/internal/config"
	"github.com/alan/changelog-guard/internal/diff"
	"github.com/alan/changelog-guard/internal/generator"
	"github.com/alan/changelog-guard/internal/github"
	"github.com/alan/changelog-guard/internal/legacy"
	"github.com/alan/changelog-guard/internal/metadata"
	"github.com/alan/changelog-guard/internal/validator"
)

// NewCheckCmd creates and returns the check command
func NewCheckCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	var repository string
	var prNumber int
	var dryRun bool

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Enforce a changelog entry on a pull request",
		Long: `Check a pull request for a structured changelog entry.
Validates existing entries, detects legacy changelog edits, and depending
on configuration fails, warns, or generates a suggested entry when the
entry is missing. Repository and PR number default to the GitHub Actions
event context.`,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runCheck(cobraCmd.Context(), *globalConfigFile, loadConfig, repository, prNumber, dryRun)
		},
	}

	checkCmd.Flags().StringVarP(&repository, "repo", "r", "", "Repository in owner/name form (defaults to GITHUB_REPOSITORY)")
	checkCmd.Flags().IntVarP(&prNumber, "pr", "p", 0, "Pull request number (defaults to the GitHub event)")
	checkCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log comments instead of posting them")

	return checkCmd
}

func runCheck(ctx context.Context, configFile string, loadConfig func(string) (*config.Config, error), repository string, prNumber int, dryRun bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dryRun {
		cfg.DryRun = true
	}
	slog.Debug("loaded configuration", "summary", cfg.Summary())

	explicit := repository != "" && prNumber != 0
	target, err := resolveTarget(repository, prNumber)
	if err != nil {
		return err
	}
	if target == nil {
		if explicit {
			return errors.New("could not resolve pull request target")
		}
		slog.Info("not a pull request workflow, skipping changelog check")
		return nil
	}

	client, err := github.NewClient(ctx, cfg.GitHubToken, cfg.GitHubAPIURL, target.owner, target.repo)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	c := &checker{
		cfg:       cfg,
		client:    client,
		validator: validator.New(commands.ValidatorPolicy(cfg)),
		outputs:   commands.NewOutputWriter(),
	}
	c.extractor, err = metadata.New(commands.MetadataConfig(cfg))
	if err != nil {
		return err
	}

	return c.run(ctx, target.number)
}

// target identifies the pull request being checked.
type target struct {
	owner  string
	repo   string
	number int
}

// resolveTarget combines explicit flags with the GitHub Actions event
// context. A nil target with a nil error means the run is not a pull
// request workflow.
func resolveTarget(repository string, prNumber int) (*target, error) {
	if repository == "" {
		repository = os.Getenv("GITHUB_REPOSITORY")
	}
	if repository == "" {
		return nil, errors.New("repository not specified and GITHUB_REPOSITORY not set")
	}
	owner, repo, err := github.SplitRepository(repository)
	if err != nil {
		return nil, err
	}

	if prNumber == 0 {
		eventName := os.Getenv("GITHUB_EVENT_NAME")
		if eventName != "" && eventName != "pull_request" && eventName != "pull_request_target" {
			return nil, nil
		}
		prNumber = eventPRNumber(os.Getenv("GITHUB_EVENT_PATH"))
		if prNumber == 0 {
			return nil, nil
		}
		slog.Info("running on pull request event", "event", eventName, "pr", prNumber)
	}

	return &target{owner: owner, repo: repo, number: prNumber}, nil
}

// eventPRNumber reads the pull request number from the workflow event
// payload. Missing or malformed payloads yield zero.
func eventPRNumber(eventPath string) int {
	if eventPath == "" {
		return 0
	}
	data, err := os.ReadFile(eventPath)
	if err != nil {
		slog.Warn("failed to read event payload", "path", eventPath, "error", err)
		return 0
	}
	var event struct {
		PullRequest struct {
			Number int `json:"number"`
		} `json:"pull_request"`
	}
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Warn("failed to parse event payload", "error", err)
		return 0
	}
	return event.PullRequest.Number
}

type prClient interface {
	GetPR(number int) (*cmd.PRInfo, error)
	ListPRFiles(number int) ([]string, error)
	GetPRDiff(number int) (string, error)
	GetFileContent(path, ref string) (string, error)
	Comment(number int, body string, mode cmd.CommentMode) error
}

type checker struct {
	cfg       *config.Config
	client    prClient
	validator *validator.Validator
	extractor *metadata.Extractor
	outputs   *commands.OutputWriter
}

func (c *checker) run(ctx context.Context, prNumber int) error {
	pr, err := c.client.GetPR(prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR #%d: %w", prNumber, err)
	}

	if commands.HasSkipLabel(pr.LabelNames(), c.cfg.SkipChangelogLabels) {
		slog.Info("skip label present, skipping changelog check", "pr", prNumber)
		c.outputs.Set("changelog-skipped", "true")
		return nil
	}

	prFiles, err := c.client.ListPRFiles(prNumber)
	if err != nil {
		return fmt.Errorf("failed to list PR files: %w", err)
	}
	slog.Info("fetched PR files", "pr", prNumber, "count", len(prFiles))

	if commands.AllFilesSkipped(prFiles, c.cfg.SkipFilesRegex) {
		slog.Info("all files match skip pattern, skipping changelog requirement")
		c.outputs.Set("changelog-skipped", "true")
		return nil
	}

	legacyFiles := legacy.FindFiles(prFiles, c.cfg.LegacyChangelogPaths)
	if len(legacyFiles) > 0 {
		slog.Info("found legacy changelog files", "count", len(legacyFiles))
	}

	changelogFiles := commands.ChangelogFiles(prFiles, c.cfg.ChangelogPath)
	slog.Info("found changelog entries in PR", "count", len(changelogFiles))

	if legacy.Conflict(legacyFiles, changelogFiles) {
		return c.handleConflict(pr, changelogFiles)
	}

	switch {
	case len(changelogFiles) > 0:
		return c.handleExisting(pr, changelogFiles)
	case len(legacyFiles) > 0:
		return c.handleLegacy(ctx, pr, legacyFiles[0])
	default:
		return c.handleMissing(ctx, pr)
	}
}

// handleExisting validates every changelog entry edited in the PR and
// reports violations. With validation-fail-workflow disabled the
// violations are warnings and the run succeeds.
func (c *checker) handleExisting(pr *cmd.PRInfo, changelogFiles []string) error {
	slog.Info("validating changelog entries", "count", len(changelogFiles))

	allValid := true
	for _, filePath := range changelogFiles {
		content, err := c.client.GetFileContent(filePath, pr.HeadSHA)
		if err != nil {
			allValid = false
			slog.Error("failed to read changelog entry", "file", filePath, "error", err)
			emoji, level := commands.FailureLevel(c.cfg.ValidationFailWorkflow)
			c.comment(pr.Number, fmt.Sprintf("%s **Changelog %s**: %s\n\n%v", emoji, level, filePath, err))
			continue
		}

		result := c.validator.Validate(content)
		if !result.Valid {
			allValid = false
			slog.Error("changelog validation failed", "file", filePath, "errors", strings.Join(result.Errors, ", "))
			c.comment(pr.Number, commands.ValidationFailureComment(filePath, c.cfg.ValidationFailMessage, result.Errors, c.cfg.ValidationFailWorkflow))
		}
	}

	c.outputs.Set("changelog-found", "true")
	c.outputs.Set("changelog-valid", fmt.Sprintf("%t", allValid))

	if !allValid && c.cfg.ValidationFailWorkflow {
		return errors.New(c.cfg.ValidationFailMessage)
	}
	return nil
}

// handleMissing applies the configured on-missing-entry action.
func (c *checker) handleMissing(ctx context.Context, pr *cmd.PRInfo) error {
	slog.Info("no changelog entry found", "action", c.cfg.OnMissingEntry)

	switch c.cfg.OnMissingEntry {
	case cmd.MissingFail:
		c.comment(pr.Number, "❌ "+c.cfg.MissingEntryMessage)
		c.outputs.Set("changelog-found", "false")
		return errors.New(c.cfg.MissingEntryMessage)

	case cmd.MissingWarn:
		slog.Warn(c.cfg.MissingEntryMessage)
		c.comment(pr.Number, "⚠️ "+c.cfg.MissingEntryMessage)
		c.outputs.Set("changelog-found", "false")
		return nil

	case cmd.MissingGenerate:
		return c.generateEntry(ctx, pr)
	}

	c.outputs.Set("changelog-found", "false")
	return nil
}

// generateEntry produces a suggested entry from the PR diff and posts
// it as a comment.
func (c *checker) generateEntry(ctx context.Context, pr *cmd.PRInfo) error {
	gen, err := c.newGenerator(pr)
	if err != nil {
		return err
	}

	rawDiff, err := c.client.GetPRDiff(pr.Number)
	if err != nil {
		return c.generationError(pr.Number, fmt.Errorf("failed to fetch PR diff: %w", err))
	}

	diffCtx := diff.Truncate(rawDiff, c.cfg.MaxTokensContext, c.cfg.MaxTokensPerFile)
	if diffCtx.Truncated {
		slog.Info("diff truncated for prompt budget",
			"tokens", diffCtx.TotalTokens, "omitted_files", diffCtx.OmittedFiles)
	}

	md := c.extractor.Extract(*pr)
	message := gen.BuildUserMessage(*pr, diffCtx.Render(), md)

	slog.Info("generating changelog entry")
	entry, err := gen.GenerateValidated(ctx, message, c.validator)
	if err != nil {
		return c.generationError(pr.Number, err)
	}

	entryPath := commands.EntryPath(c.cfg.ChangelogPath, pr.Number, pr.Title)
	c.comment(pr.Number, commands.SuggestionComment(entry, entryPath))

	c.outputs.Set("changelog-found", "false")
	c.outputs.Set("changelog-generated", "true")
	slog.Info("changelog entry generated")
	return nil
}

// handleConflict applies the configured on-legacy-and-structured action
// when a PR carries both kinds of changelog edit.
func (c *checker) handleConflict(pr *cmd.PRInfo, changelogFiles []string) error {
	slog.Warn("PR contains both legacy and structured changelog entries")
	c.outputs.Set("legacy-conflict", "true")

	switch c.cfg.OnLegacyAndStructured {
	case cmd.ConflictFail:
		c.comment(pr.Number, "❌ "+c.cfg.LegacyConflictMessage)
		return errors.New(c.cfg.LegacyConflictMessage)
	case cmd.ConflictWarn:
		c.comment(pr.Number, "⚠️ "+c.cfg.LegacyConflictMessage)
	default:
		slog.Info("ignoring legacy conflict as configured")
	}
	return c.handleExisting(pr, changelogFiles)
}

// handleLegacy applies the configured on-legacy-entry action when only
// a legacy changelog was edited.
func (c *checker) handleLegacy(ctx context.Context, pr *cmd.PRInfo, legacyFile string) error {
	slog.Info("handling legacy changelog entry", "file", legacyFile)
	c.outputs.Set("legacy-entry-found", "true")

	switch c.cfg.OnLegacyEntry {
	case cmd.LegacyWarn:
		c.comment(pr.Number, "⚠️ "+c.cfg.LegacyEntryMessage)
		return nil
	case cmd.LegacyFail:
		c.comment(pr.Number, "❌ "+c.cfg.LegacyEntryMessage)
		return errors.New(c.cfg.LegacyEntryMessage)
	case cmd.LegacyConvert:
		return c.convertLegacy(ctx, pr, legacyFile)
	}
	return nil
}

// convertLegacy extracts the legacy entry from the PR diff and asks the
// model to convert it to structured format.
func (c *checker) convertLegacy(ctx context.Context, pr *cmd.PRInfo, legacyFile string) error {
	gen, err := c.newGenerator(pr)
	if err != nil {
		return err
	}

	rawDiff, err := c.client.GetPRDiff(pr.Number)
	if err != nil {
		return c.generationError(pr.Number, fmt.Errorf("failed to fetch PR diff: %w", err))
	}

	entryText := legacy.ExtractEntryFromDiff(fileDiff(rawDiff, legacyFile))
	if entryText == "" {
		slog.Error("could not extract legacy entry from diff", "file", legacyFile)
		c.comment(pr.Number, fmt.Sprintf("⚠️ Found changes to %s but could not extract a changelog entry", legacyFile))
		return nil
	}
	slog.Info("extracted legacy changelog entry", "file", legacyFile, "chars", len(entryText))

	entryCtx := legacy.NewEntryContext(entryText)
	if entryCtx.Version != "" {
		slog.Info("legacy entry targets a released version",
			"version", entryCtx.Version, "date", entryCtx.Date)
	}
	prompt := gen.BuildConversionMessage(entryText, *pr, entryCtx, fileDiff(rawDiff, legacyFile))

	slog.Info("converting legacy entry to structured format",
		"kind", entryCtx.Kind, "summary", entryCtx.Summary)
	converted, err := gen.GenerateValidated(ctx, prompt, c.validator)
	if err != nil {
		return c.generationError(pr.Number, err)
	}

	entryPath := commands.EntryPath(c.cfg.ChangelogPath, pr.Number, pr.Title)
	c.comment(pr.Number, commands.ConversionComment(converted, legacyFile, entryPath))

	c.outputs.Set("legacy-converted", "true")
	slog.Info("legacy changelog entry converted")
	return nil
}

func (c *checker) newGenerator(pr *cmd.PRInfo) (*generator.Generator, error) {
	if c.cfg.APIKey == "" {
		msg := "no Anthropic API key provided"
		c.comment(pr.Number, "❌ Changelog generation failed: "+msg)
		c.outputs.Set("generation-error", msg)
		return nil, errors.New(msg)
	}
	return generator.New(commands.GeneratorOptions(c.cfg)), nil
}

func (c *checker) generationError(prNumber int, err error) error {
	c.comment(prNumber, "❌ Changelog generation failed: "+err.Error())
	c.outputs.Set("generation-error", err.Error())
	return err
}

// comment posts a PR comment in the configured mode, or only logs it
// in dry-run mode. Comment failures never abort the check.
func (c *checker) comment(prNumber int, body string) {
	if c.cfg.CommentMode == cmd.CommentModeNone {
		return
	}
	if c.cfg.DryRun {
		slog.Info("dry run, skipping comment", "pr", prNumber, "body", body)
		return
	}
	if err := c.client.Comment(prNumber, body, c.cfg.CommentMode); err != nil {
		slog.Error("failed to post comment", "pr", prNumber, "error", err)
	}
}

// fileDiff returns the portion of a unified diff belonging to a single
// file, or the whole diff when the file section cannot be located.
func fileDiff(rawDiff, filePath string) string {
	sections := strings.Split(rawDiff, "diff --git ")
	for _, section := range sections {
		if section == "" {
			continue
		}
		header, _, _ := strings.Cut(section, "\n")
		if strings.Contains(header, filePath) {
			return "diff --git " + section
		}
	}
	return rawDiff
}
