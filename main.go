// package main is the entry point for the changelog-guard tool
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alan/changelog-guard/cmd/check"
	"github.com/alan/changelog-guard/cmd/generate"
	"github.com/alan/changelog-guard/cmd/validate"
	"github.com/alan/changelog-guard/internal/config"
)

func main() {
	var configFile string
	var logLevel string
	var logFormat string

	rootCmd := &cobra.Command{
		Use:   "changelog-guard",
		Short: "A tool for enforcing structured changelog entries on pull requests",
		Long: `changelog-guard checks pull requests for structured changelog entries,
validates them against a configurable policy, detects legacy changelog
edits, and can generate entry suggestions from the PR diff using the
Anthropic API. Configuration comes from an optional YAML file merged
with GitHub Actions INPUT_* environment variables.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(logLevel, logFormat)
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "changelog-guard.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "text", "Log format (text, json)")

	// Create commands with access to the global config file
	rootCmd.AddCommand(check.NewCheckCmd(&configFile, config.Load))
	rootCmd.AddCommand(validate.NewValidateCmd(&configFile, config.Load))
	rootCmd.AddCommand(generate.NewGenerateCmd(&configFile, config.Load))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	slog.SetDefault(slog.New(handler))
}
