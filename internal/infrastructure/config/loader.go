package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/aicmd-go/assets"
	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/pkg/filesystem"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// EnvConfigPath overrides the location of the config file.
const EnvConfigPath = "AICMD_CONFIG"

// Environment overrides applied after the file is read.
const (
	EnvDefaultModel    = "AICMD_DEFAULT_MODEL"
	EnvCacheEnabled    = "AICMD_CACHE_ENABLED"
	EnvHashStrategy    = "AICMD_HASH_STRATEGY"
	EnvDBPath          = "AICMD_DB_PATH"
	EnvInteractive     = "AICMD_INTERACTIVE"
	EnvCopyToClipboard = "AICMD_COPY_TO_CLIPBOARD"
)

// FileLoader loads YAML configuration from ~/.aicmd/config.yaml (overridable via AICMD_CONFIG).
type FileLoader struct {
	overridePath string
	now          func() time.Time
}

// NewFileLoader builds a new loader. An empty path defers to AICMD_CONFIG
// and then to the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path, now: time.Now}
}

// Path returns the file the loader reads and writes.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), domain.AppDirName, domain.ConfigFileName)
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
		data = assets.DefaultConfigYAML
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Init writes the embedded defaults to the config path. An existing file is
// only replaced when force is set, after a backup.
func (l *FileLoader) Init(force bool) (string, error) {
	path := l.Path()
	if _, err := os.Stat(path); err == nil {
		if !force {
			return "", fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if _, err := l.Backup(); err != nil {
			return "", err
		}
	}
	if err := ensureConfigDir(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
		return "", fmt.Errorf("write default config: %w", err)
	}
	return path, nil
}

// Save writes cfg to the config path.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// Backup copies the current config file next to itself with a timestamp
// suffix and returns the backup path.
func (l *FileLoader) Backup() (string, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	dest := fmt.Sprintf("%s.backup.%s", path, l.now().Format("20060102_150405"))
	if err := os.WriteFile(dest, data, domain.SecureFilePermissions); err != nil {
		return "", fmt.Errorf("write config backup: %w", err)
	}
	return dest, nil
}

// Parse decodes data on top of the embedded defaults, so omitted fields keep
// their default values.
func Parse(data []byte) (domain.Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return domain.Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse config: %w", err)
	}

	var explicit explicitSections
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return domain.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if explicit.Models != nil {
		if explicit.Preferences.FallbackModels == nil {
			cfg.Preferences.FallbackModels = nil
		}
		if explicit.Preferences.DefaultModel == nil {
			cfg.Preferences.DefaultModel = ""
		}
	}
	return hydrateDefaults(cfg), nil
}

// Defaults returns the embedded default configuration.
func Defaults() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse default config: %w", err)
	}
	return cfg, nil
}

// explicitSections detects which model-related keys the user file declared.
type explicitSections struct {
	Preferences struct {
		DefaultModel   *string   `yaml:"default_model"`
		FallbackModels *[]string `yaml:"fallback_models"`
	} `yaml:"preferences"`
	Models *[]domain.ModelDefinition `yaml:"models"`
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Preferences.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Preferences.APITimeout <= 0 {
		cfg.Preferences.APITimeout = domain.DefaultAPITimeoutSeconds
	}
	if cfg.Cache.HashStrategy == "" {
		cfg.Cache.HashStrategy = domain.DefaultHashStrategy
	}
	if cfg.Cache.SizeLimit <= 0 {
		cfg.Cache.SizeLimit = domain.DefaultCacheSizeLimit
	}
	if cfg.Cache.MaxAgeDays <= 0 {
		cfg.Cache.MaxAgeDays = domain.DefaultMaxCacheAgeDays
	}
	if cfg.Cache.FeedbackRetentionDays <= 0 {
		cfg.Cache.FeedbackRetentionDays = domain.DefaultFeedbackRetentionDays
	}
	if cfg.Interaction.TimeoutSeconds <= 0 {
		cfg.Interaction.TimeoutSeconds = int(domain.DefaultInteractionTimeout / time.Second)
	}
	if cfg.Interaction.Color == "" {
		cfg.Interaction.Color = "auto"
	}
	if cfg.Security.RulesFile == "" {
		cfg.Security.RulesFile = filepath.Join(filesystem.UserHomeDir(), domain.AppDirName, domain.GuardrailFileName)
	}
	return cfg
}

func applyEnvOverrides(cfg *domain.Config) error {
	if v, ok := os.LookupEnv(EnvDefaultModel); ok && v != "" {
		cfg.Preferences.DefaultModel = v
	}
	if v, ok := os.LookupEnv(EnvHashStrategy); ok && v != "" {
		cfg.Cache.HashStrategy = v
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok && v != "" {
		cfg.Cache.DBPath = v
	}

	bools := []struct {
		name   string
		target *bool
	}{
		{EnvCacheEnabled, &cfg.Cache.Enabled},
		{EnvInteractive, &cfg.Interaction.Interactive},
		{EnvCopyToClipboard, &cfg.Interaction.CopyToClipboard},
	}
	for _, b := range bools {
		v, ok := os.LookupEnv(b.name)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", b.name, v)
		}
		*b.target = parsed
	}
	return nil
}

// DatabasePath resolves cache.db_path, falling back to ~/.aicmd/cache/aicmd.db.
func DatabasePath(cfg domain.Config) string {
	if cfg.Cache.DBPath == "" {
		return filepath.Join(filesystem.UserHomeDir(), domain.AppDirName, domain.CacheDirName, domain.DatabaseFileName)
	}
	if cfg.Cache.DBPath == ":memory:" {
		return cfg.Cache.DBPath
	}
	return ExpandPath(cfg.Cache.DBPath)
}

// ExpandPath resolves a leading "~/" against the home directory and cleans
// the result.
func ExpandPath(path string) string {
	return filepath.Clean(filesystem.ExpandHome(path))
}

func ensureConfigDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return nil
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
