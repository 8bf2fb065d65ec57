package commands

import (
	"context"

	"github.com/doeshing/aicmd-go/internal/app"
	"github.com/doeshing/aicmd-go/internal/domain"
	configinfra "github.com/doeshing/aicmd-go/internal/infrastructure/config"
)

// Output renders command results. cli.Renderer implements it.
type Output interface {
	Result(res domain.Resolution, copied bool, notice string)
	Stats(stats domain.CacheStats)
	Records(records []domain.CacheRecord)
	Feedback(events []domain.FeedbackEvent)
	Report(report domain.MaintenanceReport)
	Health(report domain.HealthReport)
}

// Env gives commands access to the container once flags are parsed.
type Env struct {
	// ConfigPath returns the value of --config.
	ConfigPath func() string
	// Container builds the container on first use and reuses it afterwards.
	Container func(ctx context.Context) (*app.Container, error)
	Output    Output
}

func (e *Env) loader() *configinfra.FileLoader {
	path := ""
	if e.ConfigPath != nil {
		path = e.ConfigPath()
	}
	return configinfra.NewFileLoader(path)
}
