package commands

import (
	"github.com/alan/changelog-guard/internal/config"
	"github.com/alan/changelog-guard/internal/generator"
	"github.com/alan/changelog-guard/internal/metadata"
	"github.com/alan/changelog-guard/internal/validator"
)

// ValidatorPolicy builds the validation policy from the configured
// field lists and allowed types.
func ValidatorPolicy(cfg *config.Config) validator.Policy {
	return validator.Policy{
		Mandatory:    cfg.MandatoryFields,
		Forbidden:    cfg.ForbiddenFields,
		Optional:     cfg.OptionalFields,
		AllowedTypes: cfg.ChangelogTypes,
	}
}

// MetadataConfig builds the extractor configuration from the configured
// detection toggles and tracker settings.
func MetadataConfig(cfg *config.Config) metadata.Config {
	return metadata.Config{
		GitHubIssueDetection:     cfg.GitHubIssueDetection,
		ExternalIssueRegex:       cfg.ExternalIssueRegex,
		ExternalIssueURLTemplate: cfg.ExternalIssueURLTemplate,
		IssueTrackerURLDetection: cfg.IssueTrackerURLDetection,
	}
}

// GeneratorOptions builds the LLM generator options from the configured
// model, prompt, and entry policy.
func GeneratorOptions(cfg *config.Config) generator.Options {
	return generator.Options{
		APIKey:                 cfg.APIKey,
		Model:                  cfg.Model,
		SystemPrompt:           cfg.SystemPrompt,
		Language:               cfg.Language,
		ChangelogTypes:         cfg.ChangelogTypes,
		MandatoryFields:        cfg.MandatoryFields,
		ForbiddenFields:        cfg.ForbiddenFields,
		GenerateImportantNotes: cfg.GenerateImportantNotes,
	}
}
