package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/aicmd-go/internal/domain"
)

// renderPromptMessages expands the model's prompt templates and guarantees a
// user message. Models without templates get the system prompt followed by
// the query and a short OS/shell note.
//
// Template variables: {{.Prompt}} {{.Query}} {{.WorkingDir}} {{.Shell}} {{.OS}} {{.User}}
func renderPromptMessages(model domain.ModelDefinition, query, systemPrompt string, ctx domain.ContextSnapshot) ([]domain.PromptMessage, error) {
	data := buildTemplateData(query, ctx)
	if len(model.Prompt) == 0 {
		return defaultMessages(systemPrompt, data), nil
	}

	rendered := make([]domain.PromptMessage, 0, len(model.Prompt)+1)
	for _, msg := range model.Prompt {
		content, err := executeTemplate(msg.Content, data)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, domain.PromptMessage{
			Role:    msg.Role,
			Content: strings.TrimSpace(content),
		})
	}

	if !hasUserMessage(rendered) {
		rendered = append(rendered, domain.PromptMessage{Role: "user", Content: data.Prompt})
	}
	return rendered, nil
}

type templateData struct {
	Prompt     string
	Query      string
	WorkingDir string
	Shell      string
	OS         string
	User       string
}

func buildTemplateData(query string, ctx domain.ContextSnapshot) templateData {
	query = strings.TrimSpace(query)
	prompt := query
	if snippet := contextSnippet(ctx); snippet != "" {
		prompt = fmt.Sprintf("%s\n\n%s", query, snippet)
	}
	return templateData{
		Prompt:     prompt,
		Query:      query,
		WorkingDir: ctx.WorkingDir,
		Shell:      ctx.Shell,
		OS:         ctx.OS,
		User:       ctx.User,
	}
}

func contextSnippet(ctx domain.ContextSnapshot) string {
	var lines []string
	if ctx.OS != "" {
		lines = append(lines, fmt.Sprintf("OS: %s", ctx.OS))
	}
	if ctx.Shell != "" {
		lines = append(lines, fmt.Sprintf("Shell: %s", ctx.Shell))
	}
	return strings.Join(lines, "\n")
}

func executeTemplate(raw string, data templateData) (string, error) {
	tmpl, err := template.New("prompt").Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return buf.String(), nil
}

func hasUserMessage(messages []domain.PromptMessage) bool {
	for _, msg := range messages {
		if strings.EqualFold(msg.Role, "user") {
			return true
		}
	}
	return false
}

// defaultMessages is used for models without templates. The system prompt
// is sent verbatim.
func defaultMessages(systemPrompt string, data templateData) []domain.PromptMessage {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = domain.DefaultSystemPrompt
	}
	return []domain.PromptMessage{
		{Role: "system", Content: strings.TrimSpace(systemPrompt)},
		{Role: "user", Content: data.Prompt},
	}
}
