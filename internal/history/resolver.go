package history

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver turns user references into chat IDs
type Resolver struct {
	store *Store
}

// NewResolver creates a new reference resolver
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve converts a reference to a chat ID.
//
// Supported references:
//   - "@last" - most recently updated chat
//   - "@first" - oldest chat
//   - "1", "2", "3" - by index (1-based, most recent first)
//   - "chat-..." - direct ID, or a unique ID prefix
//   - anything else - unique case-insensitive title substring
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	chats, err := r.store.List()
	if err != nil {
		return "", fmt.Errorf("failed to list chats: %w", err)
	}
	if len(chats) == 0 {
		return "", fmt.Errorf("no archived chats")
	}

	switch strings.ToLower(ref) {
	case "@last":
		return chats[0].ID, nil
	case "@first":
		return chats[len(chats)-1].ID, nil
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(chats) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(chats))
		}
		return chats[index-1].ID, nil
	}

	var matches []*Chat
	if strings.HasPrefix(ref, IDPrefix) {
		for _, chat := range chats {
			if chat.ID == ref {
				return chat.ID, nil
			}
			if strings.HasPrefix(chat.ID, ref) {
				matches = append(matches, chat)
			}
		}
	} else {
		refLower := strings.ToLower(ref)
		for _, chat := range chats {
			if strings.Contains(strings.ToLower(chat.Title), refLower) {
				matches = append(matches, chat)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no chat matching '%s'", ref)
	case 1:
		return matches[0].ID, nil
	default:
		titles := make([]string, 0, len(matches))
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.Title))
		}
		return "", fmt.Errorf("multiple chats match '%s': %s. Use the ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// ResolveChat resolves a reference and loads the chat
func (r *Resolver) ResolveChat(ref string) (*Chat, error) {
	id, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return r.store.Get(id)
}

// ReferenceHelp describes the accepted references
func ReferenceHelp() string {
	return `Supported references:
  @last          Most recently updated chat
  @first         Oldest chat
  1, 2, 3        By index (1-based, from most recent)
  chat-...       Chat ID or unique ID prefix
  "text"         Search by title substring`
}
