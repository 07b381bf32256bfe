package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Open configuration menu",
		Long: `Interactive menu to configure agentchat settings.

On non-interactive outputs the current configuration is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.deps.IsTerminal() {
				return a.runConfigShow(cmd.OutOrStdout())
			}

			path, err := a.deps.ConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfigFrom(path)
			if err != nil {
				return err
			}
			_, err = a.deps.TUI.RunConfig(cfg, path, func(c config.Config) error {
				return saveConfig(path, c)
			})
			return err
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runConfigShow(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.deps.ConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long:  "Set a configuration value.\n\nKeys: " + strings.Join(config.Keys(), ", "),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runConfigSet(cmd.OutOrStdout(), args[0], args[1])
			},
		},
	)

	return cmd
}

// runConfigShow prints the configuration with flags and env applied
func (a *app) runConfigShow(out io.Writer) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// runConfigSet updates one key in the file on disk. Global flags are
// not applied to the saved file.
func (a *app) runConfigSet(out io.Writer, key, value string) error {
	path, err := a.deps.ConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := saveConfig(path, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s = %s\n", key, value)
	return nil
}

func saveConfig(path string, cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return config.SaveConfigTo(path, cfg)
}
