package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/aicmd-go/internal/domain"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(env *Env) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the command cache",
	}

	cacheCmd.AddCommand(
		newCacheListCommand(env),
		newCacheStatsCommand(env),
		newCacheHistoryCommand(env),
		newCacheCleanupCommand(env),
		newCacheRecalcCommand(env),
		newCacheBackupCommand(env),
		newCacheClearCommand(env),
	)

	return cacheCmd
}

func newCacheListCommand(env *Env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently used cache records",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}
			records, err := container.MaintenanceService.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list cache: %w", err)
			}
			env.Output.Records(records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", domain.DefaultCacheListLimit, "Maximum records to show")
	return cmd
}

func newCacheStatsCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := container.MaintenanceService.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("cache stats: %w", err)
			}
			env.Output.Stats(stats)
			return nil
		},
	}
}

func newCacheHistoryCommand(env *Env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [query...]",
		Short: "Show the feedback log, optionally for one query",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}
			events, err := container.MaintenanceService.History(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("feedback history: %w", err)
			}
			env.Output.Feedback(events)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", domain.DefaultCacheListLimit, "Maximum events to show")
	return cmd
}

func newCacheCleanupCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale, excess and low-confidence records",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}
			report, err := container.MaintenanceService.Cleanup(cmd.Context())
			env.Output.Report(report)
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			return nil
		},
	}
}

func newCacheRecalcCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute every confidence score with the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}
			n, err := container.MaintenanceService.Recalculate(cmd.Context())
			env.Output.Report(domain.MaintenanceReport{Recalculated: n})
			if err != nil {
				return fmt.Errorf("recalculate: %w", err)
			}
			return nil
		},
	}
}

func newCacheBackupCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [destination]",
		Short: "Copy the cache database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}
			dest := ""
			if len(args) == 1 {
				dest = args[0]
			}
			written, err := container.MaintenanceService.Backup(cmd.Context(), dest)
			if err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", written)
			return nil
		},
	}
}

func newCacheClearCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cache record and feedback event",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := env.Container(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.MaintenanceService.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgCacheCleared)
			return nil
		},
	}
}
