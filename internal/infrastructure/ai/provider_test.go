package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

type capturedRequest struct {
	headers http.Header
	body    map[string]interface{}
}

func newTestServer(t *testing.T, status int, reply string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		if captured != nil {
			captured.headers = r.Header.Clone()
			assert.NoError(t, json.Unmarshal(raw, &captured.body))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIStyleRequest(t *testing.T) {
	t.Setenv("AICMD_TEST_KEY", "sk-test")
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"content":"ls -la"}}]}`, &captured)

	provider, err := NewFactoryWithClient(srv.Client()).ForModel(domain.ModelDefinition{
		Name:       "gpt",
		Provider:   domain.ProviderKindOpenAI,
		Endpoint:   srv.URL,
		AuthEnvVar: "AICMD_TEST_KEY",
		ModelID:    "gpt-4o-mini",
	})
	require.NoError(t, err)

	resp, err := provider.Generate(context.Background(), ports.ProviderRequest{
		Prompt:  "list files",
		Context: domain.ContextSnapshot{OS: "linux", Shell: "bash"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ls -la", resp.Command)

	assert.Equal(t, "Bearer sk-test", captured.headers.Get("Authorization"))
	assert.Equal(t, "gpt-4o-mini", captured.body["model"])
	messages, ok := captured.body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, domain.DefaultSystemPrompt, system["content"])
	user := messages[1].(map[string]interface{})
	assert.Equal(t, "list files\n\nOS: linux\nShell: bash", user["content"])
}

func TestAnthropicPresetRequest(t *testing.T) {
	t.Setenv("AICMD_TEST_ANTHROPIC", "ak-test")
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"content":[{"type":"text","text":"du -sh *"}]}`, &captured)

	provider, err := NewFactoryWithClient(srv.Client()).ForModel(domain.ModelDefinition{
		Name:       "claude",
		Provider:   domain.ProviderKindAnthropic,
		Endpoint:   srv.URL,
		AuthEnvVar: "AICMD_TEST_ANTHROPIC",
		ModelID:    "claude-haiku",
	})
	require.NoError(t, err)

	resp, err := provider.Generate(context.Background(), ports.ProviderRequest{Prompt: "disk usage", SystemPrompt: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "du -sh *", resp.Command)

	assert.Equal(t, "ak-test", captured.headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", captured.headers.Get("anthropic-version"))
	assert.Equal(t, "be brief", captured.body["system"])
	assert.EqualValues(t, domain.DefaultMaxTokens, captured.body["max_tokens"])
	messages := captured.body["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	assert.Equal(t, "text", content[0].(map[string]interface{})["type"])
}

func TestOllamaNeedsNoKey(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"message":{"content":"pwd"}}`, &captured)

	provider, err := NewFactoryWithClient(srv.Client()).ForModel(domain.ModelDefinition{
		Name:     "local",
		Provider: domain.ProviderKindOllama,
		Endpoint: srv.URL,
		ModelID:  "llama3",
	})
	require.NoError(t, err)

	resp, err := provider.Generate(context.Background(), ports.ProviderRequest{Prompt: "where am i"})
	require.NoError(t, err)
	assert.Equal(t, "pwd", resp.Command)
	assert.Equal(t, false, captured.body["stream"])
	assert.Empty(t, captured.headers.Get("Authorization"))
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("AICMD_TEST_MISSING", "")
	srv := newTestServer(t, http.StatusOK, `{}`, nil)
	provider, err := NewFactoryWithClient(srv.Client()).ForModel(domain.ModelDefinition{
		Name:       "gpt",
		Provider:   domain.ProviderKindOpenAI,
		Endpoint:   srv.URL,
		AuthEnvVar: "AICMD_TEST_MISSING",
	})
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), ports.ProviderRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AICMD_TEST_MISSING")
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, `{"error":"rate limited"}`, nil)
	provider, err := NewFactoryWithClient(srv.Client()).ForModel(domain.ModelDefinition{
		Name:     "local",
		Provider: domain.ProviderKindOllama,
		Endpoint: srv.URL,
	})
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), ports.ProviderRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestCustomPromptTemplate(t *testing.T) {
	model := domain.ModelDefinition{
		Prompt: []domain.PromptMessage{
			{Role: "system", Content: "You run {{.Shell}} on {{.OS}}."},
		},
	}
	messages, err := renderPromptMessages(model, "list files", "ignored", domain.ContextSnapshot{OS: "darwin", Shell: "zsh"})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "You run zsh on darwin.", messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)

	_, err = renderPromptMessages(domain.ModelDefinition{
		Prompt: []domain.PromptMessage{{Role: "user", Content: "{{.Missing"}},
	}, "q", "", domain.ContextSnapshot{})
	assert.Error(t, err)
}

func TestInferProviderKind(t *testing.T) {
	tests := []struct {
		endpoint string
		name     string
		want     domain.ProviderKind
	}{
		{endpoint: "https://api.anthropic.com/v1/messages", want: domain.ProviderKindAnthropic},
		{endpoint: "https://api.openai.com/v1/chat/completions", want: domain.ProviderKindOpenAI},
		{endpoint: "http://localhost:11434/api/chat", want: domain.ProviderKindOllama},
		{endpoint: "http://gpu-box/api/chat", name: "Ollama GPU", want: domain.ProviderKindOllama},
		{endpoint: "https://openrouter.ai/api/v1/chat/completions", want: domain.ProviderKindCustom},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferProviderKind(tt.endpoint, tt.name), tt.endpoint)
	}
}

func TestForModelRequiresEndpoint(t *testing.T) {
	_, err := NewFactory().ForModel(domain.ModelDefinition{Name: "broken"})
	assert.Error(t, err)
}
