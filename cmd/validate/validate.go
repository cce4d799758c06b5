// Package validate implements the validate command for checking changelog
// entry files on the local filesystem.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alan/changelog-guard/internal/commands"
	"github.com/alan/changelog-guard/internal/config"
	"github.com/alan/changelog-guard/internal/legacy"
	"github.com/alan/changelog-guard/internal/validator"
)

// NewValidateCmd creates and returns the validate command
func NewValidateCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Validate changelog entry files locally",
		Long: `Validate changelog entry files against the configured policy.
With no arguments, validates every YAML file under the configured
changelog path. Exits non-zero when any entry is invalid.`,
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(*globalConfigFile, loadConfig, args)
		},
	}

	return validateCmd
}

func runValidate(configFile string, loadConfig func(string) (*config.Config, error), files []string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(files) == 0 {
		if files, err = entryFiles(cfg.ChangelogPath); err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Printf("No changelog entries found under %s\n", cfg.ChangelogPath)
			return nil
		}
	}

	v := validator.New(commands.ValidatorPolicy(cfg))

	invalid := 0
	for _, filePath := range files {
		if !validateFile(v, filePath, cfg.LegacyChangelogPaths) {
			invalid++
		}
	}

	fmt.Printf("\n%d file(s) checked, %d invalid\n", len(files), invalid)
	if invalid > 0 {
		return fmt.Errorf("%d changelog entries failed validation", invalid)
	}
	return nil
}

// validateFile reports one file's result and returns whether it is valid.
// Files that look like legacy changelogs are reported as such instead of
// being run through entry validation.
func validateFile(v *validator.Validator, filePath string, legacyPatterns []string) bool {
	data, err := os.ReadFile(filePath)
	if err != nil {
		color.Red("✗ %s: %v", filePath, err)
		return false
	}

	if d := legacy.Detect(filePath, string(data), legacyPatterns); d.IsLegacy {
		color.Yellow("✗ %s: legacy changelog format (detected by %s)", filePath, d.Reason)
		return false
	}

	result := v.Validate(string(data))
	if result.Valid {
		color.Green("✓ %s", filePath)
		return true
	}

	color.Red("✗ %s", filePath)
	for _, e := range result.Errors {
		fmt.Printf("    - %s\n", e)
	}
	return false
}

// entryFiles lists the YAML files under the changelog directory.
func entryFiles(changelogPath string) ([]string, error) {
	entries, err := os.ReadDir(changelogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read changelog directory %s: %w", changelogPath, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
			files = append(files, filepath.Join(changelogPath, name))
		}
	}
	return files, nil
}
