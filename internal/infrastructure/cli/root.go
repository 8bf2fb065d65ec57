package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doeshing/aicmd-go/internal/app"
	"github.com/doeshing/aicmd-go/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
}

// NewRootCmd wires the cobra root command. The container is built on first
// use, after flags are parsed; the returned func releases it.
func NewRootCmd(opts Options) (*cobra.Command, func() error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	var (
		configPath string
		verbose    bool
		container  *app.Container
		flags      commands.ResolveFlags
	)
	prompter := NewPrompter(opts.In, opts.Err)
	renderer := NewRenderer(opts.Out, ColorAuto)

	env := &commands.Env{
		ConfigPath: func() string { return configPath },
		Output:     renderer,
		Container: func(ctx context.Context) (*app.Container, error) {
			if container != nil {
				return container, nil
			}
			c, err := app.BuildContainer(ctx, app.Options{
				ConfigPath:    configPath,
				Verbose:       verbose || opts.Verbose,
				Prompter:      prompter,
				Presenter:     renderer,
				Clipboard:     NewClipboard(),
				WrapGenerator: WithSpinner(opts.Err),
			})
			if err != nil {
				return nil, err
			}
			renderer.SetColorMode(c.Config.Interaction.Color)
			container = c
			return c, nil
		},
	}

	root := &cobra.Command{
		Use:   "aicmd [query...]",
		Short: "aicmd - natural language to shell commands",
		Long: "aicmd turns a request such as \"list files by size\" into a shell command.\n" +
			"Confirmed commands are cached and served again when a similar request comes in.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return commands.RunResolve(cmd, env, args, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.aicmd/config.yaml, or $AICMD_CONFIG)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.Bind(root)

	root.AddCommand(
		commands.NewResolveCommand(env),
		commands.NewFeedbackCommand(env),
		commands.NewCacheCommand(env),
		commands.NewConfigCommand(env),
		commands.NewDoctorCommand(env),
		commands.NewVersionCommand(),
	)

	closeFn := func() error {
		errs := []error{prompter.Close()}
		if container != nil {
			errs = append(errs, container.Close())
		}
		return errors.Join(errs...)
	}
	return root, closeFn
}
