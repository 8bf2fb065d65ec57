package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/aicmd-go/internal/application/confidence"
	"github.com/doeshing/aicmd-go/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		Preferences: domain.Preferences{DefaultModel: "gpt", FallbackModels: []string{"local"}},
		Models: []domain.ModelDefinition{
			{Name: "gpt", Provider: domain.ProviderKindOpenAI, Endpoint: "https://api.openai.com/v1/chat/completions"},
			{Name: "local", Provider: domain.ProviderKindOllama, Endpoint: "http://localhost:11434/api/chat"},
		},
		Cache: domain.CacheSettings{Enabled: true, HashStrategy: "simple", LowConfidenceThreshold: 0.1},
		Resolution: domain.ResolutionSettings{
			AutoCopyThreshold:   0.9,
			ConfidenceThreshold: 0.8,
			SimilarityThreshold: 0.7,
		},
		Confidence: domain.ConfidenceSettings{PositiveWeight: 0.2, NegativeWeight: 0.6},
		Interaction: domain.InteractionSettings{Color: "auto"},
		Security:    domain.SecuritySettings{Enabled: true, RulesFile: "~/.aicmd/guardrail.yaml"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*domain.Config) {}},
		{name: "no models", mutate: func(c *domain.Config) { c.Models = nil }, wantErr: "at least one model"},
		{name: "duplicate model", mutate: func(c *domain.Config) { c.Models[1].Name = "gpt" }, wantErr: "declared twice"},
		{name: "missing endpoint", mutate: func(c *domain.Config) { c.Models[0].Endpoint = "" }, wantErr: "endpoint must be set"},
		{name: "unknown provider", mutate: func(c *domain.Config) { c.Models[0].Provider = "bard" }, wantErr: "unknown provider"},
		{name: "hash strategy", mutate: func(c *domain.Config) { c.Cache.HashStrategy = "fuzzy" }, wantErr: "cache.hash_strategy"},
		{name: "threshold above one", mutate: func(c *domain.Config) { c.Resolution.SimilarityThreshold = 1.2 }, wantErr: "similarity_threshold"},
		{name: "negative threshold", mutate: func(c *domain.Config) { c.Cache.LowConfidenceThreshold = -0.1 }, wantErr: "low_confidence_threshold"},
		{name: "auto copy below confidence", mutate: func(c *domain.Config) { c.Resolution.AutoCopyThreshold = 0.5 }, wantErr: "auto_copy_threshold"},
		{name: "color", mutate: func(c *domain.Config) { c.Interaction.Color = "rainbow" }, wantErr: "interaction.color"},
		{name: "rules file", mutate: func(c *domain.Config) { c.Security.RulesFile = "" }, wantErr: "rules_file"},
		{name: "security disabled without rules", mutate: func(c *domain.Config) {
			c.Security = domain.SecuritySettings{}
		}},
		{name: "unknown default model", mutate: func(c *domain.Config) { c.Preferences.DefaultModel = "nope" }, wantErr: "default model nope"},
		{name: "unknown fallback", mutate: func(c *domain.Config) { c.Preferences.FallbackModels = []string{"nope"} }, wantErr: "fallback model nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateConfidenceWeights(t *testing.T) {
	cfg := validConfig()
	cfg.Confidence.PositiveWeight = 0.7

	err := Validate(cfg)
	assert.True(t, errors.Is(err, confidence.ErrInvalidParams))
}
