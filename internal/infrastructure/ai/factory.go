package ai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Factory creates providers for model definitions. One HTTP client is shared
// by every provider it builds.
type Factory struct {
	httpClient *http.Client
}

// NewFactory creates a factory with the default HTTP client.
func NewFactory() *Factory {
	return NewFactoryWithClient(&http.Client{Timeout: domain.DefaultHTTPClientTimeout})
}

// NewFactoryWithClient creates a factory around client.
func NewFactoryWithClient(client *http.Client) *Factory {
	return &Factory{httpClient: client}
}

// ForModel builds the HTTP provider for model. An unset provider kind is
// inferred from the endpoint and name.
func (f *Factory) ForModel(model domain.ModelDefinition) (ports.Provider, error) {
	if strings.TrimSpace(model.Endpoint) == "" {
		return nil, fmt.Errorf("model %q has no endpoint", model.Name)
	}
	if model.Provider == "" {
		model.Provider = inferProviderKind(model.Endpoint, model.Name)
	}
	switch model.Provider {
	case domain.ProviderKindOpenAI, domain.ProviderKindAnthropic, domain.ProviderKindOllama, domain.ProviderKindCustom:
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", model.Provider)
	}
	return newHTTPProvider(string(model.Provider), model, f.httpClient), nil
}

func inferProviderKind(endpoint string, name string) domain.ProviderKind {
	nameLower := strings.ToLower(name)

	switch {
	case strings.Contains(endpoint, "anthropic.com"):
		return domain.ProviderKindAnthropic
	case strings.Contains(endpoint, "openai.com"):
		return domain.ProviderKindOpenAI
	case strings.Contains(nameLower, "ollama"), strings.Contains(endpoint, "11434"):
		return domain.ProviderKindOllama
	default:
		return domain.ProviderKindCustom
	}
}

var _ ports.ProviderFactory = (*Factory)(nil)
