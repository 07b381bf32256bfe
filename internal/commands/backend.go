package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/agentchat/internal/api"
	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/history"
	"github.com/diogo/agentchat/internal/models"
	"github.com/diogo/agentchat/internal/render"
)

// backendAction is a single request against the workflow backend
type backendAction func(ctx context.Context, client api.AgentClientInterface) (string, error)

func newHistoryCmd(a *app) *cobra.Command {
	var asJSON, asMarkdown bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the current conversation",
		Long: `Fetch the conversation of the running workflow and print it.

By default the transcript is rendered for the terminal. Use --markdown
for plain Markdown or --json for the raw conversation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistory(cmd.OutOrStdout(), asJSON, asMarkdown)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the conversation as JSON")
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Print the transcript as Markdown")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func newSendCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "send [prompt]",
		Short: "Send a message to the agent",
		Long: `Send a single message to the running workflow.

The prompt is taken from the arguments, from --file or from stdin.

Examples:
  agentchat send "Find events in Berlin in May"
  agentchat send -f prompt.md
  echo "yes" | agentchat send`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.runAction(cmd.OutOrStdout(), cmd.ErrOrStderr(), "Sending message", "Message sent",
				func(ctx context.Context, client api.AgentClientInterface) (string, error) {
					return client.SendMessage(ctx, prompt)
				})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read prompt from file")
	return cmd
}

func newConfirmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Confirm the tool the agent wants to run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAction(cmd.OutOrStdout(), cmd.ErrOrStderr(), "Confirming action", "Action confirmed",
				func(ctx context.Context, client api.AgentClientInterface) (string, error) {
					return client.Confirm(ctx)
				})
		},
	}
}

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAction(cmd.OutOrStdout(), cmd.ErrOrStderr(), "Starting new chat", "Chat started",
				func(ctx context.Context, client api.AgentClientInterface) (string, error) {
					return client.StartWorkflow(ctx)
				})
		},
	}
}

func newEndCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the running chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAction(cmd.OutOrStdout(), cmd.ErrOrStderr(), "Ending chat", "Chat ended",
				func(ctx context.Context, client api.AgentClientInterface) (string, error) {
					return client.EndChat(ctx)
				})
		},
	}
}

// readPrompt resolves the prompt from args, a file or piped stdin
func readPrompt(args []string, file string, stdin io.Reader) (string, error) {
	var prompt string

	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		prompt = string(data)
	case len(args) > 0:
		prompt = strings.Join(args, " ")
	case stdinPiped(stdin):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		prompt = string(data)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apierrors.ErrEmptyMessage
	}
	return prompt, nil
}

// stdinPiped reports whether r carries piped input rather than a terminal
func stdinPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// runAction performs one backend request with a spinner on interactive
// terminals and prints the backend's message.
func (a *app) runAction(out, errOut io.Writer, progress, success string, action backendAction) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := a.commandLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	client, err := a.newClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	var spin *spinner
	if a.deps.IsTerminal() {
		spin = newSpinner(errOut, progress)
		spin.start()
	}

	msg, err := action(ctx, client)
	if err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		logger.Error("request failed", "action", progress, "err", err)
		return err
	}

	if spin != nil {
		spin.stopWithSuccess(success)
	}
	if msg != "" {
		fmt.Fprintln(out, msg)
	}
	return nil
}

func (a *app) runHistory(out io.Writer, asJSON, asMarkdown bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := a.commandLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	client, err := a.newClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	conv, err := client.GetConversationHistory(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode conversation: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	now := time.Now()
	doc := history.MarkdownDocument(&history.Chat{
		Title:     history.Title(conv, now),
		BaseURL:   client.BaseURL(),
		CreatedAt: now,
		UpdatedAt: now,
		Ended:     conversationEnded(conv),
		Turns:     conv,
	})

	if asMarkdown || !a.deps.IsTerminal() {
		_, err = fmt.Fprint(out, doc)
		return err
	}

	opts := render.OptionsFromConfig(cfg.Markdown, terminalWidth())
	_, err = fmt.Fprintln(out, render.MarkdownOrPlain(doc, opts))
	return err
}

// conversationEnded reports whether the agent closed the conversation
func conversationEnded(conv models.Conversation) bool {
	last, ok := conv.Last()
	return ok && last.IsAgent() && last.Agent().Next == models.NextDone
}

// terminalWidth returns the stdout width, or 80 when it is unknown
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
