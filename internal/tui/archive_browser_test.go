package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/agentchat/internal/history"
)

// mockArchiveStore is a mock implementation of ArchiveBrowserStore for testing
type mockArchiveStore struct {
	chats     []*history.Chat
	listErr   error
	deleteErr error
	deletedID string
	query     string
}

func (m *mockArchiveStore) List() ([]*history.Chat, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.chats, nil
}

func (m *mockArchiveStore) Search(query string) ([]*history.SearchResult, error) {
	m.query = query
	var results []*history.SearchResult
	for _, c := range m.chats {
		if strings.Contains(strings.ToLower(c.Title), strings.ToLower(query)) {
			results = append(results, &history.SearchResult{Chat: c, MatchSnippet: "..." + query + "...", MatchField: "content"})
		}
	}
	return results, nil
}

func (m *mockArchiveStore) Delete(id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	var kept []*history.Chat
	for _, c := range m.chats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	m.chats = kept
	return nil
}

func sampleChats() []*history.Chat {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*history.Chat{
		{ID: "chat-1", Title: "Events in Berlin", UpdatedAt: now, Ended: true, Turns: doneConv()},
		{ID: "chat-2", Title: "Flights to Tokyo", UpdatedAt: now.Add(-time.Hour), Turns: questionConv()},
		{ID: "chat-3", Title: "Invoice for May", UpdatedAt: now.Add(-48 * time.Hour)},
	}
}

// loadedBrowser returns a sized browser with its initial load applied
func loadedBrowser(t *testing.T, store *mockArchiveStore) ArchiveBrowserModel {
	t.Helper()
	m := NewArchiveBrowserModel(store)
	m.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	m = browserUpdate(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return browserUpdate(t, m, m.Init()())
}

func browserUpdate(t *testing.T, m ArchiveBrowserModel, msg tea.Msg) ArchiveBrowserModel {
	t.Helper()
	next, _ := m.Update(msg)
	bm, ok := next.(ArchiveBrowserModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return bm
}

func TestArchiveBrowser_Load(t *testing.T) {
	m := loadedBrowser(t, &mockArchiveStore{chats: sampleChats()})

	if m.loading {
		t.Error("loading should be false after load")
	}
	if len(m.rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(m.rows))
	}

	view := m.View()
	for _, want := range []string{"Archived Chats", "Events in Berlin", "Flights to Tokyo", "3 chats"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestArchiveBrowser_LoadError(t *testing.T) {
	m := loadedBrowser(t, &mockArchiveStore{listErr: errors.New("disk gone")})
	if !strings.Contains(m.View(), "disk gone") {
		t.Errorf("View = %q", m.View())
	}
}

func TestArchiveBrowser_Empty(t *testing.T) {
	m := loadedBrowser(t, &mockArchiveStore{})
	if !strings.Contains(m.View(), "No archived chats yet") {
		t.Errorf("View = %q", m.View())
	}
}

func TestArchiveBrowser_Navigation(t *testing.T) {
	m := loadedBrowser(t, &mockArchiveStore{chats: sampleChats()})

	tests := []struct {
		key  string
		want int
	}{
		{"down", 1},
		{"down", 2},
		{"down", 0},
		{"up", 2},
		{"g", 0},
		{"G", 2},
	}

	for _, tt := range tests {
		var msg tea.KeyMsg
		switch tt.key {
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = key(tt.key)
		}
		m = browserUpdate(t, m, msg)
		if m.cursor != tt.want {
			t.Errorf("after %s cursor = %d, want %d", tt.key, m.cursor, tt.want)
		}
	}
}

func TestArchiveBrowser_Select(t *testing.T) {
	m := loadedBrowser(t, &mockArchiveStore{chats: sampleChats()})
	m = browserUpdate(t, m, tea.KeyMsg{Type: tea.KeyDown})

	next, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("enter should quit")
	}
	chat, quit := next.(ArchiveBrowserModel).Result()
	if quit || chat == nil || chat.ID != "chat-2" {
		t.Errorf("Result() = %v, %v", chat, quit)
	}
}

func TestArchiveBrowser_Quit(t *testing.T) {
	m := loadedBrowser(t, &mockArchiveStore{chats: sampleChats()})

	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	chat, quit := next.(ArchiveBrowserModel).Result()
	if !quit || chat != nil {
		t.Errorf("Result() = %v, %v", chat, quit)
	}
}

func TestArchiveBrowser_Delete(t *testing.T) {
	store := &mockArchiveStore{chats: sampleChats()}
	m := loadedBrowser(t, store)

	m = browserUpdate(t, m, key("d"))
	if m.mode != ModeConfirmDelete {
		t.Fatal("d should ask for confirmation")
	}
	if !strings.Contains(m.View(), "Delete 'Events in Berlin'?") {
		t.Error("confirmation should name the chat")
	}

	m = browserUpdate(t, m, key("n"))
	if m.mode != ModeNormal || store.deletedID != "" {
		t.Error("n should cancel")
	}

	m = browserUpdate(t, m, key("d"))
	next, cmd := m.Update(key("y"))
	m = next.(ArchiveBrowserModel)
	if store.deletedID != "chat-1" {
		t.Errorf("deletedID = %q", store.deletedID)
	}
	m = browserUpdate(t, m, cmd())
	if len(m.rows) != 2 {
		t.Errorf("rows = %d after delete", len(m.rows))
	}
	if !strings.Contains(m.feedback, "Deleted") {
		t.Errorf("feedback = %q", m.feedback)
	}
}

func TestArchiveBrowser_DeleteError(t *testing.T) {
	store := &mockArchiveStore{chats: sampleChats(), deleteErr: errors.New("locked")}
	m := loadedBrowser(t, store)

	m = browserUpdate(t, m, key("d"))
	m = browserUpdate(t, m, key("y"))
	if !strings.Contains(m.feedback, "locked") {
		t.Errorf("feedback = %q", m.feedback)
	}
	if len(m.rows) != 3 {
		t.Error("rows should be unchanged")
	}
}

func TestArchiveBrowser_Search(t *testing.T) {
	store := &mockArchiveStore{chats: sampleChats()}
	m := loadedBrowser(t, store)

	m = browserUpdate(t, m, key("/"))
	if m.mode != ModeSearch {
		t.Fatal("/ should enter search mode")
	}
	for _, r := range "tokyo" {
		m = browserUpdate(t, m, key(string(r)))
	}

	next, cmd := m.Update(key("enter"))
	m = next.(ArchiveBrowserModel)
	if m.searchQuery != "tokyo" {
		t.Errorf("searchQuery = %q", m.searchQuery)
	}
	m = browserUpdate(t, m, cmd())
	if store.query != "tokyo" {
		t.Errorf("store searched %q", store.query)
	}
	if len(m.rows) != 1 || m.rows[0].chat.ID != "chat-2" {
		t.Fatalf("rows = %+v", m.rows)
	}
	if !strings.Contains(m.View(), "...tokyo...") {
		t.Error("content matches should show their snippet")
	}

	// esc clears the search before quitting
	next, cmd = m.Update(key("esc"))
	m = next.(ArchiveBrowserModel)
	if m.searchQuery != "" {
		t.Error("esc should clear the search")
	}
	m = browserUpdate(t, m, cmd())
	if len(m.rows) != 3 {
		t.Errorf("rows = %d after clearing search", len(m.rows))
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title", 8, "a longer..."},
		{"ümlaut über", 6, "ümlaut..."},
	}

	for _, tt := range tests {
		if got := truncateTitle(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateTitle(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
