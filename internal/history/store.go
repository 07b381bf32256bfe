// Package history archives finished conversations on local disk.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/diogo/agentchat/internal/models"
)

// IDPrefix starts every archived chat id
const IDPrefix = "chat-"

const titleMaxRunes = 50

// Chat is an archived conversation snapshot
type Chat struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	BaseURL   string              `json:"base_url"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Ended     bool                `json:"ended"`
	Turns     models.Conversation `json:"turns"`
}

// Store manages archived chats, one JSON file per chat
type Store struct {
	baseDir string
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a store under baseDir/history
func NewStore(baseDir string) (*Store, error) {
	historyDir := filepath.Join(baseDir, "history")
	if err := os.MkdirAll(historyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{baseDir: historyDir, now: time.Now}, nil
}

// Dir returns the directory holding the chat files
func (s *Store) Dir() string {
	return s.baseDir
}

// Save archives conv. An empty id creates a new chat; otherwise the chat
// with that id is overwritten, keeping its creation time.
func (s *Store) Save(id string, conv models.Conversation, baseURL string) (*Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	chat := &Chat{
		ID:        id,
		CreatedAt: now,
	}
	if id == "" {
		chat.ID = IDPrefix + uuid.NewString()
	} else if existing, err := s.loadChat(id); err == nil {
		chat.CreatedAt = existing.CreatedAt
	}

	chat.Title = Title(conv, now)
	chat.BaseURL = baseURL
	chat.UpdatedAt = now
	chat.Turns = conv
	if last, ok := conv.Last(); ok {
		chat.Ended = last.Agent().Next == models.NextDone
	}

	if err := s.saveChat(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// Get retrieves a chat by ID
func (s *Store) Get(id string) (*Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadChat(id)
}

// List returns all chats, most recently updated first
func (s *Store) List() ([]*Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var chats []*Chat
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		chat, err := s.loadChat(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // corrupted files are skipped
		}
		chats = append(chats, chat)
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})

	return chats, nil
}

// Delete removes a chat
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.chatPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("chat not found: %s", id)
		}
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// ClearAll deletes every archived chat and returns how many were removed
func (s *Store) ClearAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) chatPath(id string) string {
	return filepath.Join(s.baseDir, filepath.Base(id)+".json")
}

func (s *Store) loadChat(id string) (*Chat, error) {
	data, err := os.ReadFile(s.chatPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("chat not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read chat: %w", err)
	}

	var chat Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("failed to parse chat: %w", err)
	}
	return &chat, nil
}

func (s *Store) saveChat(chat *Chat) error {
	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	if err := os.WriteFile(s.chatPath(chat.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write chat: %w", err)
	}
	return nil
}

// Title derives a chat title from the first user message that is shown
// in the transcript, falling back to the archive time.
func Title(conv models.Conversation, at time.Time) string {
	for _, turn := range conv.Visible() {
		if turn.IsAgent() {
			continue
		}
		text := strings.TrimSpace(turn.Text())
		if text == "" || strings.HasPrefix(text, models.HiddenPrefix) {
			continue
		}
		text = strings.Join(strings.Fields(text), " ")
		if utf8.RuneCountInString(text) > titleMaxRunes {
			text = string([]rune(text)[:titleMaxRunes]) + "..."
		}
		return text
	}
	return "Chat " + at.Format("2006-01-02 15:04")
}
