package commands

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	configapp "github.com/doeshing/aicmd-go/internal/application/config"
	configinfra "github.com/doeshing/aicmd-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(env *Env) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect aicmd configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, env)
		},
	}

	configCmd.AddCommand(
		newConfigShowCommand(env),
		newConfigValidateCommand(env),
		newConfigPathCommand(env),
		newConfigInitCommand(env),
		newConfigDiffCommand(env),
	)

	return configCmd
}

func newConfigShowCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, env)
		},
	}
}

func newConfigValidateCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.loader().Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := configapp.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
			return nil
		},
	}
}

func newConfigPathCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), env.loader().Path())
			return nil
		},
	}
}

func newConfigInitCommand(env *Env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := env.loader().Init(force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file after backing it up")
	return cmd
}

func newConfigDiffCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show differences from the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := configinfra.Defaults()
			if err != nil {
				return err
			}
			current, err := env.loader().Load(cmd.Context())
			if err != nil {
				return err
			}
			diff := cmp.Diff(defaults, current)
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), MsgNoDifferencesFromDefault)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

func showConfiguration(cmd *cobra.Command, env *Env) error {
	loader := env.loader()
	cfg, err := loader.Load(cmd.Context())
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", loader.Path(), raw)
	return nil
}
