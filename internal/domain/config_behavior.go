package domain

import (
	"fmt"
	"time"
)

// GetDefaultModel retrieves the default model definition from configuration
// Returns an error if the default model is not found
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Preferences.DefaultModel == "" {
		return ModelDefinition{}, fmt.Errorf("no default model configured")
	}

	for _, model := range c.Models {
		if model.Name == c.Preferences.DefaultModel {
			return model, nil
		}
	}

	return ModelDefinition{}, fmt.Errorf("default model %s not found in configuration", c.Preferences.DefaultModel)
}

// FindModelByName searches for a model by its name
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// ModelChain returns the default model followed by the configured fallbacks,
// skipping unknown names and duplicates.
func (c *Config) ModelChain() []ModelDefinition {
	var chain []ModelDefinition
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if model, ok := c.FindModelByName(name); ok {
			seen[name] = true
			chain = append(chain, model)
		}
	}

	add(c.Preferences.DefaultModel)
	for _, name := range c.Preferences.FallbackModels {
		add(name)
	}
	if len(chain) == 0 && len(c.Models) > 0 {
		chain = append(chain, c.Models[0])
	}
	return chain
}

// GetAPITimeout returns the per-call generator timeout.
func (c *Config) GetAPITimeout() time.Duration {
	if c.Preferences.APITimeout <= 0 {
		return DefaultAPITimeoutSeconds * time.Second
	}
	return time.Duration(c.Preferences.APITimeout) * time.Second
}

// GetSystemPrompt returns the configured system prompt or the built-in one.
func (c *Config) GetSystemPrompt() string {
	if c.Preferences.SystemPrompt == "" {
		return DefaultSystemPrompt
	}
	return c.Preferences.SystemPrompt
}

// IsCacheEnabled reports whether the learned cache participates in resolution.
func (c *Config) IsCacheEnabled() bool {
	return c.Cache.Enabled
}

// GetHashStrategy returns the configured hash strategy name.
func (c *Config) GetHashStrategy() string {
	if c.Cache.HashStrategy == "" {
		return DefaultHashStrategy
	}
	return c.Cache.HashStrategy
}

// GetCacheSizeLimit returns the maximum number of cache records kept.
func (c *Config) GetCacheSizeLimit() int {
	if c.Cache.SizeLimit <= 0 {
		return DefaultCacheSizeLimit
	}
	return c.Cache.SizeLimit
}

// GetMaxCacheAgeDays returns the staleness cutoff used by cleanup.
func (c *Config) GetMaxCacheAgeDays() int {
	if c.Cache.MaxAgeDays <= 0 {
		return DefaultMaxCacheAgeDays
	}
	return c.Cache.MaxAgeDays
}

// GetFeedbackRetentionDays returns how long feedback events are kept.
func (c *Config) GetFeedbackRetentionDays() int {
	if c.Cache.FeedbackRetentionDays <= 0 {
		return DefaultFeedbackRetentionDays
	}
	return c.Cache.FeedbackRetentionDays
}

// GetLowConfidenceThreshold returns the score under which cleanup drops records.
func (c *Config) GetLowConfidenceThreshold() float64 {
	if c.Cache.LowConfidenceThreshold <= 0 {
		return DefaultLowConfidenceThreshold
	}
	return c.Cache.LowConfidenceThreshold
}

// GetInteractionTimeout returns the confirmation prompt timeout.
func (c *Config) GetInteractionTimeout() time.Duration {
	if c.Interaction.TimeoutSeconds <= 0 {
		return DefaultInteractionTimeout
	}
	return time.Duration(c.Interaction.TimeoutSeconds) * time.Second
}

// IsSecurityEnabled returns whether security guardrails are enabled
func (c *Config) IsSecurityEnabled() bool {
	return c.Security.Enabled
}

// ValidateConsistency checks relations between settings that individual
// field checks cannot catch.
func (c *Config) ValidateConsistency() error {
	if c.Preferences.DefaultModel != "" {
		if _, ok := c.FindModelByName(c.Preferences.DefaultModel); !ok {
			return fmt.Errorf("default model %s not found in models list", c.Preferences.DefaultModel)
		}
	}

	for _, name := range c.Preferences.FallbackModels {
		if _, ok := c.FindModelByName(name); !ok {
			return fmt.Errorf("fallback model %s not found in models list", name)
		}
	}

	r := c.Resolution
	if r.AutoCopyThreshold < r.ConfidenceThreshold {
		return fmt.Errorf("auto_copy_threshold (%.2f) must not be below confidence_threshold (%.2f)",
			r.AutoCopyThreshold, r.ConfidenceThreshold)
	}

	w := c.Confidence
	if !(w.NegativeWeight > w.PositiveWeight && w.PositiveWeight > 0) {
		return fmt.Errorf("confidence weights must satisfy negative_weight > positive_weight > 0 (got %.3f, %.3f)",
			w.NegativeWeight, w.PositiveWeight)
	}

	return nil
}
