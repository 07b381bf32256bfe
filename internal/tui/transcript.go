package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/agentchat/internal/models"
	"github.com/diogo/agentchat/internal/render"
)

// ErrorBoundaryMessage replaces the transcript when rendering panics.
const ErrorBoundaryMessage = "Something went wrong. Please Terminate the workflow and try again."

// ChatEndedMessage marks a finished conversation
const ChatEndedMessage = "Chat ended"

// transcript renders conversation entries for a viewport of a given width
type transcript struct {
	width    int
	markdown render.Options
}

func newTranscript(width int, md render.Options) transcript {
	if width < 20 {
		width = 20
	}
	return transcript{width: width, markdown: md}
}

// bubbleWidth is the maximum width of a single bubble
func (t transcript) bubbleWidth() int {
	w := t.width * 3 / 4
	if w < 16 {
		w = t.width
	}
	return w
}

// Render renders all entries followed by the ended marker when done.
func (t transcript) Render(entries []render.Entry, done bool) string {
	var sb strings.Builder

	for _, e := range entries {
		block := t.entry(e)
		if block == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block)
	}

	if done {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(lipgloss.PlaceHorizontal(t.width, lipgloss.Center, endedStyle.Render(ChatEndedMessage)))
	}

	return sb.String()
}

func (t transcript) entry(e render.Entry) string {
	var parts []string

	if !e.Hidden && strings.TrimSpace(e.Text) != "" {
		parts = append(parts, t.bubble(e.Actor, e.Text))
	}
	if e.Confirm != nil {
		parts = append(parts, t.card(*e.Confirm))
	}
	if e.ChoseTool != "" {
		parts = append(parts, choseToolStyle.Render(render.ChoseToolText(e.ChoseTool)))
	}

	return strings.Join(parts, "\n")
}

// bubble renders one message. User bubbles are plain text with links
// highlighted and sit on the right; agent bubbles go through markdown.
func (t transcript) bubble(actor, text string) string {
	width := t.bubbleWidth()

	if actor == models.ActorUser {
		label := userLabelStyle.Render("You")
		body := userBubbleStyle.MaxWidth(width).Width(min(width, lipgloss.Width(text)+2)).Render(linkify(text))
		return lipgloss.JoinVertical(lipgloss.Right,
			lipgloss.PlaceHorizontal(t.width, lipgloss.Right, label),
			lipgloss.PlaceHorizontal(t.width, lipgloss.Right, body),
		)
	}

	label := agentLabelStyle.Render("Agent")
	rendered := render.MarkdownOrPlain(text, t.markdown.WithWidth(width-2))
	body := agentBubbleStyle.MaxWidth(width).Render(rendered)
	return lipgloss.JoinVertical(lipgloss.Left, label, body)
}

// card renders the confirmation card
func (t transcript) card(c render.ConfirmCard) string {
	if c.Confirmed {
		return cardStyle.Render(cardRunningStyle.Render(c.Heading()))
	}

	lines := []string{cardTitleStyle.Render(c.Heading())}
	args, toggle := c.Body()
	for _, line := range args {
		lines = append(lines, cardArgStyle.Render(line))
	}
	if toggle != "" {
		lines = append(lines, cardToggleStyle.Render(fmt.Sprintf("%s (ctrl+a)", toggle)))
	}
	lines = append(lines, hintStyle.Render("Press ctrl+o to confirm"))

	return cardStyle.Width(t.bubbleWidth()).Render(strings.Join(lines, "\n"))
}

// linkify highlights URLs in plain text
func linkify(text string) string {
	var sb strings.Builder
	for _, seg := range render.SplitLinks(text) {
		if seg.Link {
			sb.WriteString(linkStyle.Render(seg.Text))
		} else {
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}
