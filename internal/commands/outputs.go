package commands

import (
	"fmt"
	"log/slog"
	"os"
)

// OutputWriter appends workflow outputs in the name=value format GitHub
// Actions reads from the GITHUB_OUTPUT file.
type OutputWriter struct {
	path string
}

// NewOutputWriter creates a writer targeting the GITHUB_OUTPUT file.
// When the environment variable is unset, outputs are logged only.
func NewOutputWriter() *OutputWriter {
	return &OutputWriter{path: os.Getenv("GITHUB_OUTPUT")}
}

// Set appends a single output. Write failures are logged rather than
// returned so outputs never abort the main flow.
func (w *OutputWriter) Set(name, value string) {
	slog.Info("setting output", "name", name, "value", value)
	if w.path == "" {
		return
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("failed to open output file", "path", w.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s=%s\n", name, value); err != nil {
		slog.Error("failed to write output", "name", name, "error", err)
	}
}
