// Package ai talks to remote text-generation services.
//
// Every model declared in the config file is served by the same
// configuration-driven HTTP provider; the model's APIFormat (with provider
// presets applied) decides headers, request shape and where the answer sits
// in the response JSON. Generator walks the configured model chain and
// implements ports.Generator for the resolution engine.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// httpProvider is a configuration-driven HTTP provider.
type httpProvider struct {
	name       string
	model      domain.ModelDefinition
	format     domain.APIFormat
	httpClient *http.Client
}

func newHTTPProvider(name string, model domain.ModelDefinition, client *http.Client) *httpProvider {
	return &httpProvider{
		name:       name,
		model:      model,
		format:     model.EffectiveFormat(),
		httpClient: client,
	}
}

func (p *httpProvider) Name() string {
	return p.name
}

func (p *httpProvider) Model() domain.ModelDefinition {
	return p.model
}

func (p *httpProvider) Generate(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	messages, err := renderPromptMessages(p.model, req.Prompt, req.SystemPrompt, req.Context)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	requestBody, err := p.buildRequestBody(messages)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.model.Endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.setAuthHeaders(httpReq); err != nil {
		return ports.ProviderResponse{}, err
	}
	p.setExtraHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return ports.ProviderResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), maxErrorBody))
	}

	content, err := p.parseResponse(body)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("parse response: %w", err)
	}

	return ports.ProviderResponse{
		Command: extractCommand(content),
		Reply:   content,
	}, nil
}

// buildRequestBody constructs the JSON request body from the effective APIFormat.
func (p *httpProvider) buildRequestBody(messages []domain.PromptMessage) ([]byte, error) {
	request := map[string]interface{}{
		"model": p.model.ModelID,
	}

	maxTokens := p.model.MaxTokens
	if maxTokens <= 0 && p.model.Provider == domain.ProviderKindAnthropic {
		maxTokens = domain.DefaultMaxTokens
	}
	if maxTokens > 0 {
		request["max_tokens"] = maxTokens
	}
	if p.model.Provider == domain.ProviderKindOllama {
		request["stream"] = false
	}

	if p.format.IsSystemMessageSeparate() {
		systemPrompt, chatMessages := splitSystemMessages(messages, p.format)
		if systemPrompt != "" {
			request["system"] = systemPrompt
		}
		request["messages"] = chatMessages
	} else {
		request["messages"] = formatMessagesInline(messages, p.format)
	}

	return json.Marshal(request)
}

// splitSystemMessages separates system messages for providers that take them
// in a dedicated field.
func splitSystemMessages(messages []domain.PromptMessage, format domain.APIFormat) (string, []map[string]interface{}) {
	var systemLines []string
	var chatMessages []map[string]interface{}

	for _, msg := range messages {
		if strings.EqualFold(msg.Role, "system") {
			systemLines = append(systemLines, msg.Content)
			continue
		}
		chatMessages = append(chatMessages, formatMessage(msg, format))
	}

	return strings.TrimSpace(strings.Join(systemLines, "\n")), chatMessages
}

func formatMessagesInline(messages []domain.PromptMessage, format domain.APIFormat) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		result = append(result, formatMessage(msg, format))
	}
	return result
}

func formatMessage(msg domain.PromptMessage, format domain.APIFormat) map[string]interface{} {
	message := map[string]interface{}{
		"role": strings.ToLower(msg.Role),
	}
	if format.IsContentWrapped() {
		message["content"] = []map[string]string{
			{"type": "text", "text": msg.Content},
		}
	} else {
		message["content"] = msg.Content
	}
	return message
}

// setAuthHeaders sets the API key header. Models without an auth variable
// (local Ollama) send no credentials.
func (p *httpProvider) setAuthHeaders(req *http.Request) error {
	if p.model.AuthEnvVar == "" {
		return nil
	}
	apiKey := os.Getenv(p.model.AuthEnvVar)
	if apiKey == "" {
		if !p.model.RequiresAuth() {
			return nil
		}
		return fmt.Errorf("missing API key: set %s environment variable", p.model.AuthEnvVar)
	}

	req.Header.Set(p.format.GetAuthHeaderName(), p.format.GetAuthHeaderPrefix()+apiKey)

	if p.model.OrgEnvVar != "" {
		if orgID := os.Getenv(p.model.OrgEnvVar); orgID != "" {
			req.Header.Set("OpenAI-Organization", orgID)
		}
	}
	return nil
}

func (p *httpProvider) setExtraHeaders(req *http.Request) {
	for key, value := range p.format.ExtraHeaders {
		req.Header.Set(key, value)
	}
}

// parseResponse extracts the generated text at the configured JSON path.
func (p *httpProvider) parseResponse(body []byte) (string, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("unmarshal JSON: %w", err)
	}

	path := p.format.GetResponseJSONPath()
	content, err := extractJSONPath(response, path)
	if err != nil {
		return "", fmt.Errorf("extract from path '%s': %w", path, err)
	}
	return strings.TrimSpace(content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ ports.Provider = (*httpProvider)(nil)
