package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/aicmd-go/internal/application/doctor"
	"github.com/doeshing/aicmd-go/internal/domain"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, cache and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctorDiagnostics(cmd, env)
		},
	}
}

// runDoctorDiagnostics falls back to a config-only check when the container
// cannot be built.
func runDoctorDiagnostics(cmd *cobra.Command, env *Env) error {
	service := &doctor.Service{ConfigProvider: env.loader()}
	container, buildErr := env.Container(cmd.Context())
	if buildErr == nil {
		service = container.DoctorService
	}

	report, err := service.Run(cmd.Context())
	if buildErr != nil {
		report.Checks = append(report.Checks, domain.HealthCheck{
			Name:    "Startup",
			Status:  domain.HealthError,
			Details: buildErr.Error(),
		})
	}
	// Display report even if there were errors
	env.Output.Health(report)

	if err != nil {
		return fmt.Errorf("diagnostics completed with errors: %w", err)
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("diagnostics found %d failing check(s)", len(failed))
	}
	return nil
}
