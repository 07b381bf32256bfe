// Package commands provides CLI commands for agentchat.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/api"
	"github.com/diogo/agentchat/internal/config"
	"github.com/diogo/agentchat/internal/logging"
	"github.com/diogo/agentchat/internal/tui"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	apiURL  string
	logFile string
	verbose bool
}

// app carries the dependencies and global flags into each command
type app struct {
	deps *Dependencies
	opts globalOptions
}

// NewRootCmd builds the agentchat command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}
	a := &app{deps: deps}

	cmd := &cobra.Command{
		Use:   "agentchat",
		Short: "Terminal client for an agent workflow backend",
		Long: `agentchat is a terminal chat client for an AI agent workflow backend.
It polls the backend for the conversation, lets you answer the agent and
confirms the tools the agent wants to run.

Examples:
  agentchat                             Start the interactive chat
  agentchat serve-dev                   Run a local scripted backend
  agentchat send "Find events in May"   Send a single message
  agentchat history --markdown          Print the current conversation
  agentchat archive                     Browse archived chats`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "agentchat %s (built %s)\n", Version, BuildTime)
				return nil
			}
			return a.runChat()
		},
	}

	cmd.PersistentFlags().StringVar(&a.opts.apiURL, "api-url", "",
		fmt.Sprintf("Backend URL (default from config or $%s)", config.EnvAPIURL))
	cmd.PersistentFlags().StringVar(&a.opts.logFile, "log-file", "", "Write logs to this file")
	cmd.PersistentFlags().BoolVar(&a.opts.verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(
		newChatCmd(a),
		newHistoryCmd(a),
		newSendCmd(a),
		newConfirmCmd(a),
		newStartCmd(a),
		newEndCmd(a),
		newArchiveCmd(a),
		newConfigCmd(a),
		newServeDevCmd(a),
	)

	return cmd
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies())

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the global flags
func (a *app) loadConfig() (config.Config, error) {
	path, err := a.deps.ConfigPath()
	if err != nil {
		return config.DefaultConfig(), err
	}

	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		return cfg, err
	}

	if u := strings.TrimSpace(a.opts.apiURL); u != "" {
		cfg.APIURL = strings.TrimSuffix(u, "/")
	}
	if a.opts.logFile != "" {
		cfg.LogFile = a.opts.logFile
	}
	if a.opts.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// commandLogger returns the logger for commands that keep the terminal.
// Logs go to the log file when one is set, to stderr when verbose and
// nowhere otherwise.
func (a *app) commandLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	if cfg.LogFile == "" && cfg.Verbose {
		return logging.NewStderr(true), func() error { return nil }, nil
	}
	return logging.Open(cfg.LogFile, cfg.Verbose)
}

// newClient creates a backend client configured from cfg
func (a *app) newClient(cfg config.Config, logger *slog.Logger) (api.AgentClientInterface, error) {
	client, err := a.deps.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout()),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}
