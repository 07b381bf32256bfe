package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/diogo/agentchat/internal/models"
	"github.com/diogo/agentchat/internal/render"
)

// ExportFormat represents the format for exporting chats
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat accepts "markdown", "md" and "json".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "markdown", "md":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format: %s", s)
	}
}

// ExportMessage is one transcript message in a JSON export
type ExportMessage struct {
	Actor string          `json:"actor"`
	Text  string          `json:"text"`
	Next  string          `json:"next,omitempty"`
	Tool  string          `json:"tool,omitempty"`
	Args  json.RawMessage `json:"args,omitempty"`
}

// ExportChat is the JSON export document
type ExportChat struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	BaseURL   string          `json:"base_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Ended     bool            `json:"ended"`
	Messages  []ExportMessage `json:"messages"`
}

// Messages flattens the visible turns of conv for export. Hidden
// prompts are dropped.
func Messages(conv models.Conversation) []ExportMessage {
	visible := conv.Visible()
	out := make([]ExportMessage, 0, len(visible))

	for i, turn := range visible {
		if !turn.IsAgent() {
			text := turn.Text()
			if render.IsHidden(text) {
				continue
			}
			out = append(out, ExportMessage{Actor: turn.Actor, Text: text})
			continue
		}

		agent := turn.Agent()
		msg := ExportMessage{
			Actor: turn.Actor,
			Text:  agent.DisplayText(i == len(visible)-1),
			Next:  string(agent.Next),
			Tool:  agent.Tool,
		}
		if render.IsHidden(msg.Text) {
			continue
		}
		if agent.Args.IsObject() {
			msg.Args = json.RawMessage(agent.Args.Raw)
		}
		out = append(out, msg)
	}
	return out
}

// MarkdownDocument renders a chat as Markdown
func MarkdownDocument(chat *Chat) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(chat.Title)
	sb.WriteString("\n\n")

	if chat.BaseURL != "" {
		fmt.Fprintf(&sb, "**Backend:** %s\n", chat.BaseURL)
	}
	fmt.Fprintf(&sb, "**Created:** %s\n", chat.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Updated:** %s\n", chat.UpdatedAt.Format("2006-01-02 15:04:05"))

	messages := Messages(chat.Turns)
	fmt.Fprintf(&sb, "**Messages:** %d\n\n---\n\n", len(messages))

	for i, msg := range messages {
		role := "User"
		if msg.Actor == models.ActorAgent {
			role = "Agent"
		}
		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n")

		if msg.Tool != "" && models.NextStep(msg.Next) == models.NextConfirm {
			fmt.Fprintf(&sb, "\n**Tool:** `%s`\n", msg.Tool)
			if msg.Args != nil {
				lines, _ := render.ArgLines(gjson.ParseBytes(msg.Args), true)
				for _, line := range lines {
					sb.WriteString("\n    ")
					sb.WriteString(line)
				}
				sb.WriteString("\n")
			}
		}

		if i < len(messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	if chat.Ended {
		sb.WriteString("\n---\n\n_Chat ended_\n")
	}

	return sb.String()
}

// JSONDocument renders a chat as indented JSON
func JSONDocument(chat *Chat) ([]byte, error) {
	export := ExportChat{
		ID:        chat.ID,
		Title:     chat.Title,
		BaseURL:   chat.BaseURL,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
		Ended:     chat.Ended,
		Messages:  Messages(chat.Turns),
	}
	return json.MarshalIndent(export, "", "  ")
}

// Export loads a chat and renders it in format
func (s *Store) Export(id string, format ExportFormat) ([]byte, error) {
	chat, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportFormatJSON:
		return JSONDocument(chat)
	case ExportFormatMarkdown:
		return []byte(MarkdownDocument(chat)), nil
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}

// SearchResult is a chat matching a search query
type SearchResult struct {
	Chat         *Chat
	MatchSnippet string
	// MatchField is "title" or "content".
	MatchField string
}

// Search finds chats whose title or transcript contains query
func (s *Store) Search(query string) ([]*SearchResult, error) {
	chats, err := s.List()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var results []*SearchResult

	for _, chat := range chats {
		if strings.Contains(strings.ToLower(chat.Title), queryLower) {
			results = append(results, &SearchResult{Chat: chat, MatchSnippet: chat.Title, MatchField: "title"})
			continue
		}

		for _, msg := range Messages(chat.Turns) {
			if strings.Contains(strings.ToLower(msg.Text), queryLower) {
				results = append(results, &SearchResult{
					Chat:         chat,
					MatchSnippet: extractSnippet(msg.Text, query, 60),
					MatchField:   "content",
				})
				break
			}
		}
	}

	return results, nil
}

// extractSnippet returns up to maxLen runes of content around query
func extractSnippet(content, query string, maxLen int) string {
	runes := []rune(content)
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx < 0 {
		if len(runes) > maxLen {
			return string(runes[:maxLen]) + "..."
		}
		return content
	}

	pos := len([]rune(content[:idx]))
	start := pos - maxLen/2
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

// FormatRelativeTime formats t relative to now, like "5 min ago"
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "min") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02")
	}
}

func plural(n int, unit string) string {
	if n == 1 || unit == "min" {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
