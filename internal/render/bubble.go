package render

import (
	"regexp"
	"strings"

	"github.com/diogo/agentchat/internal/models"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Segment is a run of bubble text, either plain or a link
type Segment struct {
	Text string
	Link bool
}

// SplitLinks splits text into plain and link segments, in order.
func SplitLinks(text string) []Segment {
	var segments []Segment
	pos := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		if loc[0] > pos {
			segments = append(segments, Segment{Text: text[pos:loc[0]]})
		}
		segments = append(segments, Segment{Text: text[loc[0]:loc[1]], Link: true})
		pos = loc[1]
	}
	if pos < len(text) {
		segments = append(segments, Segment{Text: text[pos:]})
	}
	return segments
}

// Links returns the URLs found in text
func Links(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// IsHidden reports whether bubble text must not be rendered
func IsHidden(text string) bool {
	return strings.HasPrefix(text, models.HiddenPrefix)
}

// Entry is one renderable transcript item
type Entry struct {
	Actor string
	// Text is the bubble text; empty when the bubble is hidden.
	Text   string
	Hidden bool
	// Confirm is set when the entry carries a confirmation card.
	Confirm *ConfirmCard
	// ChoseTool names the tool the agent picked without asking to confirm.
	ChoseTool string
}

// Entries converts the visible turns of conv into transcript entries.
// confirmed and showAll apply to the card of the last entry only.
func Entries(conv models.Conversation, confirmed, showAll bool) []Entry {
	visible := conv.Visible()
	entries := make([]Entry, 0, len(visible))

	for i, turn := range visible {
		isLast := i == len(visible)-1

		if !turn.IsAgent() {
			entries = append(entries, bubbleEntry(turn.Actor, turn.Text()))
			continue
		}

		agent := turn.Agent()
		entry := bubbleEntry(turn.Actor, agent.DisplayText(isLast))
		switch {
		case agent.RequiresConfirm(isLast):
			entry.Confirm = &ConfirmCard{
				Tool:      agent.ToolName(),
				Args:      agent.Args,
				Confirmed: confirmed,
				ShowAll:   showAll,
			}
		case agent.ChoseTool(isLast):
			entry.ChoseTool = agent.ToolName()
		}
		entries = append(entries, entry)
	}
	return entries
}

func bubbleEntry(actor, text string) Entry {
	if IsHidden(text) {
		return Entry{Actor: actor, Hidden: true}
	}
	return Entry{Actor: actor, Text: text}
}
