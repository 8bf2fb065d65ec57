package doctor

import (
	"context"
	"fmt"
	"os"

	appconfig "github.com/doeshing/aicmd-go/internal/application/config"
	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider   ports.ConfigProvider
	Store            ports.CacheMaintainer
	SecurityService  ports.SecurityService
	ContextCollector ports.ContextCollector
	Clipboard        ports.Clipboard
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Run executes checks and returns a report. Only a config that cannot be
// loaded is returned as an error; every other problem is a failed check.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))

	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config values", err.Error()))
	} else {
		checks = append(checks, ok("Config values", "valid"))
	}

	checks = append(checks, s.cacheCheck(ctx, cfg))

	if s.SecurityService != nil {
		if _, err := s.SecurityService.Evaluate("ls"); err != nil {
			checks = append(checks, fail("Guardrail", err.Error()))
		} else if !cfg.IsSecurityEnabled() {
			checks = append(checks, warn("Guardrail", "disabled in config"))
		} else {
			checks = append(checks, ok("Guardrail", "rules loaded"))
		}
	} else {
		checks = append(checks, warn("Guardrail", "security service not initialized"))
	}

	if s.ContextCollector != nil {
		if snapshot, err := s.ContextCollector.Collect(ctx); err == nil {
			checks = append(checks, ok("Environment", fmt.Sprintf("os %s, shell %s", snapshot.OS, snapshot.Shell)))
		} else {
			checks = append(checks, warn("Environment", err.Error()))
		}
	}

	if s.Clipboard != nil {
		if s.Clipboard.Enabled() {
			checks = append(checks, ok("Clipboard", "available"))
		} else {
			checks = append(checks, warn("Clipboard", "unavailable; commands will only be printed"))
		}
	}

	checks = append(checks, s.apiCheck(cfg.ModelChain()))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) cacheCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	if !cfg.IsCacheEnabled() {
		return warn("Command cache", "disabled in config")
	}
	if s.Store == nil || !s.Store.Available() {
		return fail("Command cache", "database unavailable; queries go straight to the API")
	}
	stats, err := s.Store.Stats(ctx)
	if err != nil {
		return fail("Command cache", err.Error())
	}
	return ok("Command cache", fmt.Sprintf("%d entries in %s", stats.TotalEntries, stats.DatabasePath))
}

func (s *Service) apiCheck(models []domain.ModelDefinition) domain.HealthCheck {
	if len(models) == 0 {
		return fail("API keys", "no models configured")
	}
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	var missing []string
	for _, model := range models {
		if model.RequiresAuth() && getenv(model.AuthEnvVar) == "" {
			missing = append(missing, model.AuthEnvVar)
		}
	}
	switch {
	case len(missing) == len(models):
		return fail("API keys", fmt.Sprintf("no usable model: missing %v", missing))
	case len(missing) > 0:
		return warn("API keys", fmt.Sprintf("missing %v", missing))
	default:
		return ok("API keys", fmt.Sprintf("%d model(s) ready", len(models)))
	}
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
