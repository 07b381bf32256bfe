package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/devserver"
	"github.com/diogo/agentchat/internal/logging"
)

func newServeDevCmd(a *app) *cobra.Command {
	var addr, scriptPath string

	cmd := &cobra.Command{
		Use:   "serve-dev",
		Short: "Run a local scripted agent backend",
		Long: `Run a development backend that implements the workflow endpoints
with a scripted agent, so the chat client can be tried without the real
workflow service. Metrics are served at /metrics.

The agent follows an embedded script unless --script points to a YAML file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServeDev(ctx, addr, scriptPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", devserver.DefaultAddr, "Address to listen on")
	cmd.Flags().StringVar(&scriptPath, "script", "", "YAML script for the agent (default: embedded script)")
	return cmd
}

func (a *app) runServeDev(ctx context.Context, addr, scriptPath string) error {
	logger := logging.NewStderr(a.opts.verbose)

	script, err := loadDevScript(scriptPath)
	if err != nil {
		return err
	}

	metrics := devserver.NewMetrics()
	agent := devserver.NewAgent(script,
		devserver.WithAgentLogger(logger),
		devserver.WithTurnHook(metrics.ObserveTurn),
		devserver.WithToolMiddleware(devserver.LoggingMiddleware(logger), metrics.ToolMiddleware()),
	)

	logger.Info("scripted agent ready", "goal", script.Goal, "steps", len(script.Steps))
	return devserver.NewServer(agent, metrics, logger).ListenAndServe(ctx, addr)
}

func loadDevScript(path string) (*devserver.Script, error) {
	if path == "" {
		return devserver.DefaultScript()
	}
	script, err := devserver.LoadScript(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	return script, nil
}
