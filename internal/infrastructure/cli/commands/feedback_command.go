package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/aicmd-go/internal/domain"
)

// NewFeedbackCommand creates the feedback command, which confirms or rejects
// the command cached for a query.
func NewFeedbackCommand(env *Env) *cobra.Command {
	var confirm, reject bool
	cmd := &cobra.Command{
		Use:   "feedback <query...> --confirm|--reject",
		Short: "Record feedback for a cached command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var action domain.FeedbackAction
			switch {
			case confirm:
				action = domain.FeedbackConfirmed
			case reject:
				action = domain.FeedbackRejected
			default:
				return errors.New(ErrFeedbackRequired)
			}
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			record, err := container.MaintenanceService.Feedback(cmd.Context(), query, action)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for %q => %s (confidence %.3f)\n",
				action, record.Query, record.Command, record.ConfidenceScore)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Mark the cached command as correct")
	cmd.Flags().BoolVar(&reject, "reject", false, "Mark the cached command as wrong")
	cmd.MarkFlagsMutuallyExclusive("confirm", "reject")
	return cmd
}
