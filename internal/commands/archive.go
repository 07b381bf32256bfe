package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/history"
	"github.com/diogo/agentchat/internal/render"
)

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived chats",
		Long: `View and manage the chats archived on this machine.

Without a subcommand an interactive browser opens on terminals.

` + history.ReferenceHelp(),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runArchiveBrowse(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(
		newArchiveListCmd(a),
		newArchiveShowCmd(a),
		newArchiveExportCmd(a),
		newArchiveDeleteCmd(a),
		newArchiveClearCmd(a),
	)
	return cmd
}

func newArchiveListCmd(a *app) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runArchiveList(cmd.OutOrStdout(), search)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only list chats matching this text")
	return cmd
}

func newArchiveShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show an archived chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, chat, err := a.resolveChat(args[0])
			if err != nil {
				return err
			}
			return a.printChat(cmd.OutOrStdout(), chat)
		},
	}
}

func newArchiveExportCmd(a *app) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Export an archived chat as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := history.ParseExportFormat(format)
			if err != nil {
				return err
			}

			store, chat, err := a.resolveChat(args[0])
			if err != nil {
				return err
			}

			data, err := store.Export(chat.ID, exportFormat)
			if err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", chat.ID, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(history.ExportFormatMarkdown), "Export format (markdown, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the export to this file")
	return cmd
}

func newArchiveDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete an archived chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, chat, err := a.resolveChat(args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(chat.ID); err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted chat: %s\n", chat.ID)
			return nil
		},
	}
}

func newArchiveClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all archived chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			removed, err := store.ClearAll()
			if err != nil {
				return fmt.Errorf("failed to clear archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chats.\n", removed)
			return nil
		},
	}
}

func (a *app) openStore() (*history.Store, error) {
	store, err := a.deps.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return store, nil
}

// resolveChat opens the archive and loads the chat ref points to
func (a *app) resolveChat(ref string) (*history.Store, *history.Chat, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	chat, err := history.NewResolver(store).ResolveChat(ref)
	if err != nil {
		return nil, nil, err
	}
	return store, chat, nil
}

func (a *app) runArchiveList(out io.Writer, search string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	var chats []*history.Chat
	if search != "" {
		results, err := store.Search(search)
		if err != nil {
			return fmt.Errorf("failed to search archive: %w", err)
		}
		for _, r := range results {
			chats = append(chats, r.Chat)
		}
	} else {
		chats, err = store.List()
		if err != nil {
			return fmt.Errorf("failed to list chats: %w", err)
		}
	}

	if len(chats) == 0 {
		fmt.Fprintln(out, "No archived chats found.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tMESSAGES\tSTATUS\tUPDATED")
	_, _ = fmt.Fprintln(w, "-\t--\t-----\t--------\t------\t-------")

	for i, chat := range chats {
		status := "open"
		if chat.Ended {
			status = "ended"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			i+1, chat.ID, truncate(chat.Title, 40), len(history.Messages(chat.Turns)), status,
			history.FormatRelativeTime(chat.UpdatedAt, now))
	}

	return w.Flush()
}

// runArchiveBrowse opens the browser on terminals and prints the chosen
// chat; elsewhere it lists the archive.
func (a *app) runArchiveBrowse(out io.Writer) error {
	if !a.deps.IsTerminal() {
		return a.runArchiveList(out, "")
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}

	chat, err := a.deps.TUI.RunArchiveBrowser(store)
	if err != nil {
		return err
	}
	if chat == nil {
		return nil
	}
	return a.printChat(out, chat)
}

// printChat writes chat as Markdown, rendered when stdout is a terminal
func (a *app) printChat(out io.Writer, chat *history.Chat) error {
	doc := history.MarkdownDocument(chat)
	if !a.deps.IsTerminal() {
		_, err := fmt.Fprint(out, doc)
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	opts := render.OptionsFromConfig(cfg.Markdown, terminalWidth())
	_, err = fmt.Fprintln(out, render.MarkdownOrPlain(doc, opts))
	return err
}

// truncate shortens s to maxLen runes
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
