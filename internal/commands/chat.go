package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/logging"
	"github.com/diogo/agentchat/internal/render"
	"github.com/diogo/agentchat/internal/tui"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the agent backend.

The conversation is polled from the backend and redrawn as it changes.
Press Enter to send, Ctrl+O to confirm a tool, Ctrl+N to start a new
chat once the current one ended and Esc or Ctrl+C to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat()
		},
	}
}

func (a *app) runChat() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	if cfg.TUITheme != "" && render.SetPalette(cfg.TUITheme) {
		tui.UpdateTheme()
	}

	// The TUI owns the terminal, so logs only go to the log file
	logger, closeLog, err := logging.Open(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	client, err := a.newClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := tui.Options{
		Config: cfg,
		Logger: logger,
	}

	if cfg.ArchiveChats {
		store, err := a.deps.OpenStore()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		opts.Archive = store
	}

	logger.Info("starting chat", "api_url", client.BaseURL(), "archive", cfg.ArchiveChats)
	return a.deps.TUI.RunChat(client, opts)
}
