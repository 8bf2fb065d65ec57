package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/aicmd-go/internal/application/query"
)

// ResolveFlags are the per-query switches.
type ResolveFlags struct {
	ForceAPI bool
	NoCopy   bool
}

// Bind registers the flags on cmd.
func (f *ResolveFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.ForceAPI, FlagForceAPI, false, "Skip the cache and ask the model directly")
	cmd.Flags().BoolVar(&f.NoCopy, FlagNoCopy, false, "Never copy the command to the clipboard")
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(env *Env) *cobra.Command {
	var flags ResolveFlags
	cmd := &cobra.Command{
		Use:   "resolve <query...>",
		Short: "Turn a natural-language request into a shell command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunResolve(cmd, env, args, flags)
		},
	}
	flags.Bind(cmd)
	return cmd
}

// RunResolve resolves the joined args and prints the outcome.
func RunResolve(cmd *cobra.Command, env *Env, args []string, flags ResolveFlags) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New(ErrQueryRequired)
	}
	container, err := env.Container(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := container.QueryService.Run(cmd.Context(), query.Request{
		Query:    text,
		ForceAPI: flags.ForceAPI,
		NoCopy:   flags.NoCopy,
	})
	if err != nil {
		return err
	}
	env.Output.Result(resp.Resolution, resp.Copied, resp.Notice)
	return nil
}
