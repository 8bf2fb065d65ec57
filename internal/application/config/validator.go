package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/aicmd-go/internal/application/confidence"
	"github.com/doeshing/aicmd-go/internal/application/matching"
	"github.com/doeshing/aicmd-go/internal/domain"
)

// Validate ensures config structure is consistent. It reports the first
// violated rule.
func Validate(cfg domain.Config) error {
	if len(cfg.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	if err := validateModels(cfg.Models); err != nil {
		return err
	}
	if err := validateCache(cfg.Cache); err != nil {
		return err
	}
	if err := validateResolution(cfg.Resolution); err != nil {
		return err
	}
	if err := confidence.ParamsFromConfig(cfg.Confidence).Validate(); err != nil {
		return err
	}
	if err := validateInteraction(cfg.Interaction); err != nil {
		return err
	}
	if cfg.Security.Enabled && cfg.Security.RulesFile == "" {
		return fmt.Errorf("security.rules_file must be set")
	}
	if cfg.Preferences.APITimeout < 0 {
		return fmt.Errorf("preferences.api_timeout must be >= 0")
	}
	return cfg.ValidateConsistency()
}

func validateModels(models []domain.ModelDefinition) error {
	seen := make(map[string]bool, len(models))
	for i, model := range models {
		if model.Name == "" {
			return fmt.Errorf("models[%d].name must be set", i)
		}
		if seen[model.Name] {
			return fmt.Errorf("model %s declared twice", model.Name)
		}
		seen[model.Name] = true
		if model.Endpoint == "" {
			return fmt.Errorf("model %s: endpoint must be set", model.Name)
		}
		switch model.Provider {
		case "", domain.ProviderKindOpenAI, domain.ProviderKindAnthropic, domain.ProviderKindOllama, domain.ProviderKindCustom:
		default:
			return fmt.Errorf("model %s: unknown provider %q", model.Name, model.Provider)
		}
		if model.MaxTokens < 0 {
			return fmt.Errorf("model %s: max_tokens must be >= 0", model.Name)
		}
	}
	return nil
}

func validateCache(cache domain.CacheSettings) error {
	if _, err := matching.ParseHashStrategy(cache.HashStrategy); err != nil {
		return fmt.Errorf("cache.hash_strategy: %w", err)
	}
	if cache.SizeLimit < 0 {
		return fmt.Errorf("cache.size_limit must be >= 0")
	}
	if cache.MaxAgeDays < 0 {
		return fmt.Errorf("cache.max_age_days must be >= 0")
	}
	if cache.FeedbackRetentionDays < 0 {
		return fmt.Errorf("cache.feedback_retention_days must be >= 0")
	}
	return unitInterval("cache.low_confidence_threshold", cache.LowConfidenceThreshold)
}

func validateResolution(r domain.ResolutionSettings) error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"resolution.auto_copy_threshold", r.AutoCopyThreshold},
		{"resolution.confidence_threshold", r.ConfidenceThreshold},
		{"resolution.similarity_threshold", r.SimilarityThreshold},
	}
	for _, th := range thresholds {
		if err := unitInterval(th.name, th.value); err != nil {
			return err
		}
	}
	return nil
}

func validateInteraction(in domain.InteractionSettings) error {
	if in.TimeoutSeconds < 0 {
		return fmt.Errorf("interaction.timeout_seconds must be >= 0")
	}
	switch strings.ToLower(in.Color) {
	case "", "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("interaction.color must be auto|always|never, got %s", in.Color)
	}
}

func unitInterval(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be within [0, 1], got %.3f", name, v)
	}
	return nil
}
