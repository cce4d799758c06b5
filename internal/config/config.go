// Package config loads and validates changelog-guard configuration from an
// optional YAML file and GitHub Actions INPUT_* environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/alan/changelog-guard/cmd"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Error marks a configuration problem detected at load time, before any
// extraction or validation runs. Match with errors.As.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return "invalid configuration: " + e.Msg
}

func configErrorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// envPrefix is how GitHub Actions exposes workflow inputs
const envPrefix = "INPUT_"

// rawConfig mirrors the action inputs verbatim; everything is a string so
// file and environment sources merge uniformly before typed parsing.
type rawConfig struct {
	ChangelogPath       string `koanf:"changelog-path"`
	OnMissingEntry      string `koanf:"on-missing-entry"`
	MissingEntryMessage string `koanf:"missing-entry-message"`
	SkipFilesRegex      string `koanf:"skip-files-regex"`
	SkipChangelogLabels string `koanf:"skip-changelog-labels"`

	APIKey           string `koanf:"anthropic-api-key"`
	Model            string `koanf:"model"`
	SystemPrompt     string `koanf:"system-prompt"`
	Language         string `koanf:"changelog-language"`
	MaxTokensContext string `koanf:"max-tokens-context"`
	MaxTokensPerFile string `koanf:"max-tokens-per-file"`

	ChangelogTypes  string `koanf:"changelog-types"`
	MandatoryFields string `koanf:"mandatory-fields"`
	ForbiddenFields string `koanf:"forbidden-fields"`
	OptionalFields  string `koanf:"optional-fields"`

	LegacyChangelogPaths  string `koanf:"legacy-changelog-paths"`
	OnLegacyEntry         string `koanf:"on-legacy-entry"`
	OnLegacyAndStructured string `koanf:"on-legacy-and-structured"`
	LegacyEntryMessage    string `koanf:"legacy-entry-message"`
	LegacyConflictMessage string `koanf:"legacy-conflict-message"`

	ValidationFailMessage  string `koanf:"validation-fail-message"`
	ValidationFailWorkflow string `koanf:"validation-fail-workflow"`
	CommentMode            string `koanf:"comment-mode"`

	ExternalIssueRegex       string `koanf:"external-issue-regex"`
	ExternalIssueURLTemplate string `koanf:"external-issue-url-template"`
	GenerateImportantNotes   string `koanf:"generate-important-notes"`
	GitHubIssueDetection     string `koanf:"github-issue-detection"`
	IssueTrackerURLDetection string `koanf:"issue-tracker-url-detection"`

	DryRun string `koanf:"dry-run"`
}

// Config is the fully parsed and validated configuration threaded through
// every component call; there are no ambient singletons besides the slog
// default handler set once in main.
type Config struct {
	GitHubToken  string
	GitHubAPIURL string

	ChangelogPath       string
	OnMissingEntry      cmd.OnMissingEntry
	MissingEntryMessage string
	SkipFilesRegex      *regexp.Regexp
	SkipChangelogLabels []string

	APIKey           string
	Model            string
	SystemPrompt     string
	Language         string
	MaxTokensContext int
	MaxTokensPerFile int

	ChangelogTypes  []string
	MandatoryFields []string
	ForbiddenFields []string
	OptionalFields  []string

	LegacyChangelogPaths  []string
	OnLegacyEntry         cmd.OnLegacyEntry
	OnLegacyAndStructured cmd.OnConflict
	LegacyEntryMessage    string
	LegacyConflictMessage string

	ValidationFailMessage  string
	ValidationFailWorkflow bool
	CommentMode            cmd.CommentMode

	ExternalIssueRegex       string
	ExternalIssueURLTemplate string
	GenerateImportantNotes   bool
	GitHubIssueDetection     bool
	IssueTrackerURLDetection bool

	DryRun bool
}

func defaults() rawConfig {
	return rawConfig{
		ChangelogPath:       "changelog/unreleased",
		OnMissingEntry:      "fail",
		MissingEntryMessage: "This pull request is missing a changelog entry in the changelog/unreleased directory",

		Model:            "claude-opus-4-1-20250805",
		Language:         "English",
		MaxTokensContext: "5000",
		MaxTokensPerFile: "1000",

		ChangelogTypes:  "added,changed,deprecated,removed,fixed,security,dependency_update,other",
		MandatoryFields: "title",

		LegacyChangelogPaths:  "CHANGELOG.md",
		OnLegacyEntry:         "convert",
		OnLegacyAndStructured: "warn",
		LegacyEntryMessage:    "I detected a legacy changelog entry. Converting it to structured format...",
		LegacyConflictMessage: "This PR contains both legacy and structured changelog entries. Please use only the structured format.",

		ValidationFailMessage:  "The changelog entry does not comply with the required format",
		ValidationFailWorkflow: "true",
		CommentMode:            "review-comment",

		GenerateImportantNotes:   "true",
		GitHubIssueDetection:     "true",
		IssueTrackerURLDetection: "true",

		DryRun: "false",
	}
}

// Load reads configuration from the optional YAML file at path (skipped
// when absent) with INPUT_* environment variables taking precedence, then
// parses and validates the result. Configuration problems surface here as
// *Error, never later as silent no-ops.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, configErrorf("loading config file %s: %v", path, err)
			}
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, configErrorf("loading environment inputs: %v", err)
	}

	raw := defaults()
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, configErrorf("unmarshaling configuration: %v", err)
	}

	return parse(raw)
}

// envTransform converts action input environment names to config keys.
// Example: INPUT_ON_MISSING_ENTRY -> on-missing-entry
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
}

func parse(raw rawConfig) (*Config, error) {
	cfg := &Config{
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL: envOrDefault("GITHUB_API_URL", "https://api.github.com"),

		ChangelogPath:       raw.ChangelogPath,
		MissingEntryMessage: raw.MissingEntryMessage,
		SkipChangelogLabels: splitList(raw.SkipChangelogLabels),

		APIKey:       firstNonEmpty(raw.APIKey, os.Getenv("ANTHROPIC_API_KEY")),
		Model:        raw.Model,
		SystemPrompt: raw.SystemPrompt,
		Language:     raw.Language,

		ChangelogTypes:  splitList(raw.ChangelogTypes),
		MandatoryFields: splitList(raw.MandatoryFields),
		ForbiddenFields: splitList(raw.ForbiddenFields),
		OptionalFields:  splitList(raw.OptionalFields),

		LegacyChangelogPaths:  splitList(raw.LegacyChangelogPaths),
		LegacyEntryMessage:    raw.LegacyEntryMessage,
		LegacyConflictMessage: raw.LegacyConflictMessage,

		ValidationFailMessage: raw.ValidationFailMessage,

		ExternalIssueRegex:       raw.ExternalIssueRegex,
		ExternalIssueURLTemplate: raw.ExternalIssueURLTemplate,
	}

	var ok bool
	if cfg.OnMissingEntry, ok = cmd.ParseOnMissingEntry(raw.OnMissingEntry); !ok {
		return nil, configErrorf("on-missing-entry must be one of fail, warn, generate; got %q", raw.OnMissingEntry)
	}
	if cfg.OnLegacyEntry, ok = cmd.ParseOnLegacyEntry(raw.OnLegacyEntry); !ok {
		return nil, configErrorf("on-legacy-entry must be one of convert, warn, fail; got %q", raw.OnLegacyEntry)
	}
	if cfg.OnLegacyAndStructured, ok = cmd.ParseOnConflict(raw.OnLegacyAndStructured); !ok {
		return nil, configErrorf("on-legacy-and-structured must be one of fail, warn, ignore; got %q", raw.OnLegacyAndStructured)
	}
	if cfg.CommentMode, ok = cmd.ParseCommentMode(raw.CommentMode); !ok {
		return nil, configErrorf("comment-mode must be one of comment, review-comment, none; got %q", raw.CommentMode)
	}

	var err error
	if cfg.MaxTokensContext, err = parsePositiveInt("max-tokens-context", raw.MaxTokensContext); err != nil {
		return nil, err
	}
	if cfg.MaxTokensPerFile, err = parsePositiveInt("max-tokens-per-file", raw.MaxTokensPerFile); err != nil {
		return nil, err
	}

	if cfg.ValidationFailWorkflow, err = parseBool("validation-fail-workflow", raw.ValidationFailWorkflow); err != nil {
		return nil, err
	}
	if cfg.GenerateImportantNotes, err = parseBool("generate-important-notes", raw.GenerateImportantNotes); err != nil {
		return nil, err
	}
	if cfg.GitHubIssueDetection, err = parseBool("github-issue-detection", raw.GitHubIssueDetection); err != nil {
		return nil, err
	}
	if cfg.IssueTrackerURLDetection, err = parseBool("issue-tracker-url-detection", raw.IssueTrackerURLDetection); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = parseBool("dry-run", raw.DryRun); err != nil {
		return nil, err
	}

	if raw.SkipFilesRegex != "" {
		if cfg.SkipFilesRegex, err = regexp.Compile(raw.SkipFilesRegex); err != nil {
			return nil, configErrorf("skip-files-regex does not compile: %v", err)
		}
	}

	if len(cfg.ChangelogTypes) == 0 {
		return nil, configErrorf("changelog-types cannot be empty")
	}
	if len(cfg.MandatoryFields) == 0 {
		cfg.MandatoryFields = []string{"title"}
	}

	return cfg, nil
}

func parsePositiveInt(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, configErrorf("%s must be a number, got %q", name, value)
	}
	if n <= 0 {
		return 0, configErrorf("%s must be positive, got %d", name, n)
	}
	return n, nil
}

func parseBool(name, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, configErrorf("%s must be true or false, got %q", name, value)
	}
}

// splitList parses a comma-separated input into trimmed non-empty items
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Summary returns a human-readable configuration overview for startup logging
func (c *Config) Summary() string {
	lines := []string{
		"changelog path: " + c.ChangelogPath,
		"on missing entry: " + string(c.OnMissingEntry),
		"validation types: " + strings.Join(c.ChangelogTypes, ", "),
		"mandatory fields: " + strings.Join(c.MandatoryFields, ", "),
		fmt.Sprintf("legacy paths: %d configured", len(c.LegacyChangelogPaths)),
		fmt.Sprintf("dry-run: %t", c.DryRun),
	}
	return strings.Join(lines, "\n")
}
