package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/infrastructure/store"
)

type staticConfig struct {
	cfg domain.Config
	err error
}

func (s staticConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

type okSecurity struct{}

func (okSecurity) Evaluate(string) (domain.SafetySignal, error) { return domain.SafetySignal{}, nil }

func healthyConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Preferences:         domain.Preferences{DefaultModel: "gpt", FallbackModels: []string{"local"}},
		Models: []domain.ModelDefinition{
			{Name: "gpt", Provider: domain.ProviderKindOpenAI, Endpoint: "https://api.openai.com/v1/chat/completions", AuthEnvVar: "OPENAI_API_KEY"},
			{Name: "local", Provider: domain.ProviderKindOllama, Endpoint: "http://localhost:11434/api/chat"},
		},
		Cache:      domain.CacheSettings{Enabled: true, HashStrategy: "simple"},
		Resolution: domain.ResolutionSettings{AutoCopyThreshold: 0.9, ConfidenceThreshold: 0.8, SimilarityThreshold: 0.7},
		Confidence: domain.ConfidenceSettings{PositiveWeight: 0.2, NegativeWeight: 0.6},
		Security:   domain.SecuritySettings{Enabled: true, RulesFile: "guardrail.yaml"},
	}
}

func statusOf(report domain.HealthReport) map[string]domain.HealthStatus {
	out := map[string]domain.HealthStatus{}
	for _, check := range report.Checks {
		out[check.Name] = check.Status
	}
	return out
}

func TestDoctorHealthyEnvironment(t *testing.T) {
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := &Service{
		ConfigProvider:  staticConfig{cfg: healthyConfig()},
		Store:           s,
		SecurityService: okSecurity{},
		Getenv:          func(string) string { return "" },
	}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]domain.HealthStatus{
		"Config file":   domain.HealthOK,
		"Config values": domain.HealthOK,
		"Command cache": domain.HealthOK,
		"Guardrail":     domain.HealthOK,
		"API keys":      domain.HealthWarn,
	}, statusOf(report))
}

func TestDoctorReportsBrokenPieces(t *testing.T) {
	cfg := healthyConfig()
	cfg.Models = cfg.Models[:1]
	cfg.Preferences.FallbackModels = nil
	cfg.Resolution.SimilarityThreshold = 3

	svc := &Service{
		ConfigProvider: staticConfig{cfg: cfg},
		Store:          store.Unavailable(":memory:"),
		Getenv:         func(string) string { return "" },
	}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	got := statusOf(report)
	assert.Equal(t, domain.HealthError, got["Config values"])
	assert.Equal(t, domain.HealthError, got["Command cache"])
	assert.Equal(t, domain.HealthWarn, got["Guardrail"])
	assert.Equal(t, domain.HealthError, got["API keys"])
}

func TestDoctorConfigLoadFailure(t *testing.T) {
	svc := &Service{ConfigProvider: staticConfig{err: errors.New("bad yaml")}}
	report, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, domain.HealthError, report.Checks[0].Status)
}
