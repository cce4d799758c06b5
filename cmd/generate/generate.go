// Package generate implements the generate command that produces a
// changelog entry for a pull request on demand.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alan/changelog-guard/internal/commands"
	"github.com/alan/changelog-guard/internal/config"
	"github.com/alan/changelog-guard/internal/diff"
	"github.com/alan/changelog-guard/internal/generator"
	"github.com/alan/changelog-guard/internal/github"
	"github.com/alan/changelog-guard/internal/metadata"
	"github.com/alan/changelog-guard/internal/validator"
)

// NewGenerateCmd creates and returns the generate command
func NewGenerateCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	var repository string
	var prNumber int
	var postComment bool

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a changelog entry for a pull request",
		Long: `Generate a structured changelog entry from a pull request's diff
and metadata. Prints the entry to stdout, or posts it as a suggestion
comment with --comment.`,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runGenerate(cobraCmd.Context(), *globalConfigFile, loadConfig, repository, prNumber, postComment)
		},
	}

	generateCmd.Flags().StringVarP(&repository, "repo", "r", "", "Repository in owner/name form (defaults to GITHUB_REPOSITORY)")
	generateCmd.Flags().IntVarP(&prNumber, "pr", "p", 0, "Pull request number")
	generateCmd.Flags().BoolVar(&postComment, "comment", false, "Post the entry as a suggestion comment on the PR")

	return generateCmd
}

func runGenerate(ctx context.Context, configFile string, loadConfig func(string) (*config.Config, error), repository string, prNumber int, postComment bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.APIKey == "" {
		return errors.New("no Anthropic API key provided")
	}
	if prNumber == 0 {
		return errors.New("--pr is required")
	}
	if repository == "" {
		repository = os.Getenv("GITHUB_REPOSITORY")
	}
	owner, repo, err := github.SplitRepository(repository)
	if err != nil {
		return err
	}

	client, err := github.NewClient(ctx, cfg.GitHubToken, cfg.GitHubAPIURL, owner, repo)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pr, err := client.GetPR(prNumber)
	if err != nil {
		return err
	}

	rawDiff, err := client.GetPRDiff(prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR diff: %w", err)
	}
	diffCtx := diff.Truncate(rawDiff, cfg.MaxTokensContext, cfg.MaxTokensPerFile)
	if diffCtx.Truncated {
		slog.Info("diff truncated for prompt budget",
			"tokens", diffCtx.TotalTokens, "omitted_files", diffCtx.OmittedFiles)
	}

	extractor, err := metadata.New(commands.MetadataConfig(cfg))
	if err != nil {
		return err
	}

	gen := generator.New(commands.GeneratorOptions(cfg))
	v := validator.New(commands.ValidatorPolicy(cfg))

	message := gen.BuildUserMessage(*pr, diffCtx.Render(), extractor.Extract(*pr))
	entry, err := gen.GenerateValidated(ctx, message, v)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if postComment && !cfg.DryRun {
		entryPath := commands.EntryPath(cfg.ChangelogPath, pr.Number, pr.Title)
		if err := client.Comment(prNumber, commands.SuggestionComment(entry, entryPath), cfg.CommentMode); err != nil {
			return fmt.Errorf("failed to post suggestion comment: %w", err)
		}
		slog.Info("posted suggestion comment", "pr", prNumber)
		return nil
	}

	fmt.Println(entry)
	return nil
}
