// Package domain defines the entities and value objects of the command
// resolver: configuration, cache records, feedback events, resolutions and
// safety signals. It has no dependencies on infrastructure.
package domain

// ProviderKind selects the request/response dialect of a remote generator.
type ProviderKind string

const (
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindOllama    ProviderKind = "ollama"
	ProviderKindCustom    ProviderKind = "custom"
)

// ModelDefinition describes a remote generator declared in the config file.
type ModelDefinition struct {
	Name       string          `yaml:"name"`
	Provider   ProviderKind    `yaml:"provider,omitempty"`
	Endpoint   string          `yaml:"endpoint"`
	AuthEnvVar string          `yaml:"auth_env_var,omitempty"`
	OrgEnvVar  string          `yaml:"org_env_var,omitempty"`
	ModelID    string          `yaml:"model_id"`
	MaxTokens  int             `yaml:"max_tokens,omitempty"`
	Prompt     []PromptMessage `yaml:"prompt,omitempty"`
	APIFormat  APIFormat       `yaml:"api_format,omitempty"`
}

// RequiresAuth reports whether the model needs an API key from the environment.
func (m ModelDefinition) RequiresAuth() bool {
	return m.Provider != ProviderKindOllama && m.AuthEnvVar != ""
}

// EffectiveFormat returns the APIFormat with the provider preset applied to
// every field the user left empty.
func (m ModelDefinition) EffectiveFormat() APIFormat {
	preset := presetFormat(m.Provider)
	f := m.APIFormat
	if f.AuthHeaderName == "" {
		f.AuthHeaderName = preset.AuthHeaderName
		if f.AuthHeaderPrefix == "" {
			f.AuthHeaderPrefix = preset.AuthHeaderPrefix
		}
	}
	if f.SystemMessageMode == "" {
		f.SystemMessageMode = preset.SystemMessageMode
	}
	if f.ContentWrapper == "" {
		f.ContentWrapper = preset.ContentWrapper
	}
	if f.ResponseJSONPath == "" {
		f.ResponseJSONPath = preset.ResponseJSONPath
	}
	if len(preset.ExtraHeaders) > 0 {
		headers := make(map[string]string, len(preset.ExtraHeaders)+len(f.ExtraHeaders))
		for k, v := range preset.ExtraHeaders {
			headers[k] = v
		}
		for k, v := range f.ExtraHeaders {
			headers[k] = v
		}
		f.ExtraHeaders = headers
	}
	return f
}

func presetFormat(kind ProviderKind) APIFormat {
	switch kind {
	case ProviderKindAnthropic:
		return APIFormat{
			AuthHeaderName:    "x-api-key",
			SystemMessageMode: SystemMessageModeSeparate,
			ContentWrapper:    ContentWrapperAnthropic,
			ResponseJSONPath:  AnthropicResponsePath,
			ExtraHeaders:      map[string]string{"anthropic-version": "2023-06-01"},
		}
	case ProviderKindOllama:
		return APIFormat{ResponseJSONPath: OllamaResponsePath}
	default:
		return APIFormat{}
	}
}

// APIFormat defines how to construct requests and parse responses for different AI APIs.
// All fields are optional with OpenAI-compatible defaults.
type APIFormat struct {
	// AuthHeaderName defaults to "Authorization".
	AuthHeaderName string `yaml:"auth_header_name,omitempty"`

	// AuthHeaderPrefix defaults to "Bearer " unless a custom header name is set.
	AuthHeaderPrefix string `yaml:"auth_header_prefix,omitempty"`

	// SystemMessageMode is "inline" or "separate" (Anthropic).
	SystemMessageMode string `yaml:"system_message_mode,omitempty"`

	// ContentWrapper is "standard" or "anthropic".
	ContentWrapper string `yaml:"content_wrapper,omitempty"`

	// ResponseJSONPath locates the generated text, e.g. "content[0].text".
	ResponseJSONPath string `yaml:"response_json_path,omitempty"`

	ExtraHeaders map[string]string `yaml:"extra_headers,omitempty"`
}

// PromptMessage follows the role/content pair required by most chat APIs.
type PromptMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// API Format Constants define standard values for APIFormat fields.
const (
	DefaultAuthHeaderName   = "Authorization"
	DefaultAuthHeaderPrefix = "Bearer "

	SystemMessageModeInline   = "inline"
	SystemMessageModeSeparate = "separate"

	ContentWrapperStandard  = "standard"
	ContentWrapperAnthropic = "anthropic"

	DefaultResponsePath   = "choices[0].message.content"
	AnthropicResponsePath = "content[0].text"
	OllamaResponsePath    = "message.content"
)

// GetAuthHeaderName returns the authentication header name with default fallback.
func (f APIFormat) GetAuthHeaderName() string {
	if f.AuthHeaderName == "" {
		return DefaultAuthHeaderName
	}
	return f.AuthHeaderName
}

// GetAuthHeaderPrefix returns the authentication header prefix.
// An empty prefix is intentional when the header name was customised.
func (f APIFormat) GetAuthHeaderPrefix() string {
	if f.AuthHeaderName != "" && f.AuthHeaderPrefix == "" {
		return ""
	}
	if f.AuthHeaderPrefix == "" {
		return DefaultAuthHeaderPrefix
	}
	return f.AuthHeaderPrefix
}

// GetResponseJSONPath returns the JSON path for extracting response content with default fallback.
func (f APIFormat) GetResponseJSONPath() string {
	if f.ResponseJSONPath == "" {
		return DefaultResponsePath
	}
	return f.ResponseJSONPath
}

// IsSystemMessageSeparate returns true if system messages should be in a separate field.
func (f APIFormat) IsSystemMessageSeparate() bool {
	return f.SystemMessageMode == SystemMessageModeSeparate
}

// IsContentWrapped returns true if content should be wrapped in Anthropic's array format.
func (f APIFormat) IsContentWrapped() bool {
	return f.ContentWrapper == ContentWrapperAnthropic
}
