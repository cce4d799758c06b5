package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alan/changelog-guard/internal/validator"
)

func apiReply(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return string(payload)
}

func testOptions(url string) Options {
	return Options{
		APIKey:          "test-key",
		Model:           "claude-test",
		ChangelogTypes:  []string{"added", "fixed"},
		MandatoryFields: []string{"title"},
		APIURL:          url,
	}
}

func TestGenerate(t *testing.T) {
	var gotHeaders http.Header
	var gotBody apiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, apiReply("```yaml\ntitle: Add retry logic\ntype: added\n```"))
	}))
	defer server.Close()

	g := New(testOptions(server.URL))
	entry, err := g.Generate(context.Background(), "describe this change")
	require.NoError(t, err)

	assert.Equal(t, "title: Add retry logic\ntype: added", entry)
	assert.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, apiVersion, gotHeaders.Get("anthropic-version"))
	assert.Equal(t, "claude-test", gotBody.Model)
	assert.Equal(t, maxOutputTokens, gotBody.MaxTokens)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "describe this change", gotBody.Messages[0].Content)
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := New(testOptions(server.URL))
	_, err := g.Generate(context.Background(), "message")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerateInvalidYAMLOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, apiReply("title: [unclosed"))
	}))
	defer server.Close()

	g := New(testOptions(server.URL))
	_, err := g.Generate(context.Background(), "message")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid YAML")
}

func TestGenerateValidatedRetriesOnViolations(t *testing.T) {
	// The first response misses the mandatory title, the retry passes
	responses := []string{
		"type: added\n",
		"title: Fix it\ntype: added\n",
	}
	var requests []apiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		fmt.Fprint(w, apiReply(responses[len(requests)-1]))
	}))
	defer server.Close()

	g := New(testOptions(server.URL))
	v := validator.New(validator.Policy{
		Mandatory:    []string{"title"},
		AllowedTypes: []string{"added", "fixed"},
	})

	entry, err := g.GenerateValidated(context.Background(), "original prompt", v)
	require.NoError(t, err)

	assert.Equal(t, "title: Fix it\ntype: added", entry)
	require.Len(t, requests, 2)
	assert.Equal(t, "original prompt", requests[0].Messages[0].Content)
	assert.Contains(t, requests[1].Messages[0].Content, "validation errors")
	assert.Contains(t, requests[1].Messages[0].Content, "missing mandatory field: title")
}

func TestGenerateValidatedExhaustsRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, apiReply("type: added\n"))
	}))
	defer server.Close()

	g := New(testOptions(server.URL))
	v := validator.New(validator.Policy{
		Mandatory:    []string{"title"},
		AllowedTypes: []string{"added"},
	})

	_, err := g.GenerateValidated(context.Background(), "prompt", v)

	require.Error(t, err)
	assert.Equal(t, validationRetries+1, calls)
	assert.Contains(t, err.Error(), "missing mandatory field: title")
}

func TestExtractYAML(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"yaml fence", "```yaml\ntitle: X\n```", "title: X"},
		{"plain fence", "```\ntitle: X\n```", "title: X"},
		{"fence with prose around", "Here you go:\n```yaml\ntitle: X\n```\nEnjoy!", "title: X"},
		{"no fence", "  title: X\n", "title: X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractYAML(tt.text))
		})
	}
}
