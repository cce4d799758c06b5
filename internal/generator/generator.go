// Package generator produces structured changelog entries from PR context
// using the Anthropic Messages API.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alan/changelog-guard/internal/validator"
)

const (
	defaultAPIURL     = "https://api.anthropic.com/v1/messages"
	apiVersion        = "2023-06-01"
	maxOutputTokens   = 1024
	validationRetries = 2
)

// Options configures a Generator
type Options struct {
	APIKey                 string
	Model                  string
	SystemPrompt           string
	Language               string
	ChangelogTypes         []string
	MandatoryFields        []string
	ForbiddenFields        []string
	GenerateImportantNotes bool

	// APIURL overrides the Anthropic endpoint, used by tests
	APIURL string
	// HTTPClient overrides the default client, used by tests
	HTTPClient *http.Client
}

// Generator calls the LLM to write or convert changelog entries
type Generator struct {
	opts         Options
	apiURL       string
	systemPrompt string
	client       *http.Client
}

// New builds a Generator, composing the system prompt once up front
func New(opts Options) *Generator {
	g := &Generator{
		opts:   opts,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 120 * time.Second},
	}
	if opts.APIURL != "" {
		g.apiURL = opts.APIURL
	}
	if opts.HTTPClient != nil {
		g.client = opts.HTTPClient
	}
	g.systemPrompt = g.composeSystemPrompt()
	return g
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends the user message to the LLM and returns the generated
// changelog entry YAML, stripped of markdown fences and checked to parse.
func (g *Generator) Generate(ctx context.Context, userMessage string) (string, error) {
	body, err := json.Marshal(apiRequest{
		Model:     g.opts.Model,
		MaxTokens: maxOutputTokens,
		System:    g.systemPrompt,
		Messages:  []apiMessage{{Role: "user", Content: userMessage}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("x-api-key", g.opts.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed apiResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("generation response contained no content")
	}

	entry := ExtractYAML(parsed.Content[0].Text)

	var check any
	if err := yaml.Unmarshal([]byte(entry), &check); err != nil {
		return "", fmt.Errorf("generated entry is not valid YAML: %w", err)
	}

	return entry, nil
}

// GenerateValidated generates an entry and validates it against the policy,
// retrying with validation feedback baked into the prompt. All violations of
// the final attempt are reported when every retry is exhausted.
func (g *Generator) GenerateValidated(ctx context.Context, userMessage string, v *validator.Validator) (string, error) {
	var lastErrors []string

	for attempt := 1; attempt <= validationRetries+1; attempt++ {
		prompt := userMessage
		if len(lastErrors) > 0 {
			prompt = retryPrompt(userMessage, lastErrors)
		}

		entry, err := g.Generate(ctx, prompt)
		if err != nil {
			slog.Warn("generation attempt failed", "attempt", attempt, "error", err)
			if attempt > validationRetries {
				return "", fmt.Errorf("failed to generate a valid entry after %d attempts: %w", attempt, err)
			}
			continue
		}

		result := v.Validate(entry)
		if result.Valid {
			slog.Info("generated entry passed validation", "attempt", attempt)
			return entry, nil
		}

		lastErrors = result.Errors
		slog.Warn("generated entry failed validation", "attempt", attempt, "errors", strings.Join(result.Errors, "; "))
	}

	return "", fmt.Errorf("generated entry failed validation after %d attempts: %s",
		validationRetries+1, strings.Join(lastErrors, "; "))
}

var fencedBlock = regexp.MustCompile("(?s)```(?:yaml)?\\s*\\n(.*?)\\n```")

// ExtractYAML strips a markdown code fence from LLM output when present
func ExtractYAML(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
