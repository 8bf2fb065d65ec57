package domain

// Config mirrors ~/.aicmd/config.yaml.
type Config struct {
	ConfigFormatVersion string              `yaml:"config_format_version"`
	Preferences         Preferences         `yaml:"preferences"`
	Models              []ModelDefinition   `yaml:"models"`
	Cache               CacheSettings       `yaml:"cache"`
	Resolution          ResolutionSettings  `yaml:"resolution"`
	Confidence          ConfidenceSettings  `yaml:"confidence"`
	Interaction         InteractionSettings `yaml:"interaction"`
	Security            SecuritySettings    `yaml:"security"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string   `yaml:"default_model"`
	FallbackModels []string `yaml:"fallback_models,omitempty"`
	APITimeout     int      `yaml:"api_timeout"`
	SystemPrompt   string   `yaml:"system_prompt,omitempty"`
}

// CacheSettings controls the learned command cache.
type CacheSettings struct {
	Enabled                bool    `yaml:"enabled"`
	HashStrategy           string  `yaml:"hash_strategy"`
	DBPath                 string  `yaml:"db_path,omitempty"`
	SizeLimit              int     `yaml:"size_limit"`
	MaxAgeDays             int     `yaml:"max_age_days"`
	FeedbackRetentionDays  int     `yaml:"feedback_retention_days"`
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`
}

// ResolutionSettings holds the thresholds of the resolution policy.
type ResolutionSettings struct {
	AutoCopyThreshold   float64 `yaml:"auto_copy_threshold"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// ConfidenceSettings parameterises the sigmoid confidence model.
type ConfidenceSettings struct {
	PositiveWeight float64 `yaml:"positive_weight"`
	NegativeWeight float64 `yaml:"negative_weight"`
	InitialBias    float64 `yaml:"initial_bias"`
	Sensitivity    float64 `yaml:"sensitivity"`
	HalfLifeDays   float64 `yaml:"half_life_days"`
	MinDecay       float64 `yaml:"min_decay"`
}

// InteractionSettings configures the confirmation prompt.
type InteractionSettings struct {
	Interactive          bool   `yaml:"interactive"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	AutoConfirmOnTimeout bool   `yaml:"auto_confirm_on_timeout"`
	CopyToClipboard      bool   `yaml:"copy_to_clipboard"`
	Color                string `yaml:"color"`
}

// SecuritySettings defines guardrail behavior.
type SecuritySettings struct {
	Enabled                   bool   `yaml:"enabled"`
	RulesFile                 string `yaml:"rules_file"`
	ForceConfirmationOnDanger bool   `yaml:"force_confirmation_on_danger"`
	DisableAutoCopyOnDanger   bool   `yaml:"disable_auto_copy_on_danger"`
}
