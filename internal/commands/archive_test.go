package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/agentchat/internal/history"
	"github.com/diogo/agentchat/internal/models"
)

// seedArchive stores two chats and returns them oldest first
func seedArchive(t *testing.T, env *testEnv) []*history.Chat {
	t.Helper()
	store, err := history.NewStore(env.dir)
	if err != nil {
		t.Fatal(err)
	}

	first, err := store.Save("", sampleConversation(), "http://127.0.0.1:8000")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Save("", models.Conversation{
		models.NewTextTurn(models.ActorUser, "Flights to Tokyo"),
		{Actor: models.ActorAgent, Response: json.RawMessage(`{"response":"Booked, bye!","next":"done"}`)},
	}, "http://127.0.0.1:8000")
	if err != nil {
		t.Fatal(err)
	}
	return []*history.Chat{first, second}
}

func TestArchiveList(t *testing.T) {
	env := newTestEnv(t)
	chats := seedArchive(t, env)

	out, err := env.run(t, "archive", "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"TITLE", chats[0].ID, chats[1].ID, "Berlin in May", "Flights to Tokyo"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}
}

func TestArchiveList_Search(t *testing.T) {
	env := newTestEnv(t)
	chats := seedArchive(t, env)

	out, err := env.run(t, "archive", "list", "--search", "tokyo")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, chats[1].ID) || strings.Contains(out, chats[0].ID) {
		t.Errorf("search output:\n%s", out)
	}
}

func TestArchiveList_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "archive", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No archived chats found.") {
		t.Errorf("out = %q", out)
	}
}

func TestArchiveShow(t *testing.T) {
	env := newTestEnv(t)
	chats := seedArchive(t, env)

	tests := []struct {
		ref  string
		want string
	}{
		{chats[0].ID, "# Berlin in May"},
		{"@first", "# Berlin in May"},
		{"tokyo", "# Flights to Tokyo"},
	}

	for _, tt := range tests {
		out, err := env.run(t, "archive", "show", tt.ref)
		if err != nil {
			t.Fatalf("show %s: %v", tt.ref, err)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("show %s missing %q:\n%s", tt.ref, tt.want, out)
		}
	}

	if _, err := env.run(t, "archive", "show", "no-such-chat"); err == nil {
		t.Error("unknown references should fail")
	}
}

func TestArchiveExport(t *testing.T) {
	env := newTestEnv(t)
	chats := seedArchive(t, env)

	out, err := env.run(t, "archive", "export", chats[1].ID, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var doc history.ExportChat
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("export is not JSON: %v\n%s", err, out)
	}
	if doc.ID != chats[1].ID || !doc.Ended {
		t.Errorf("doc = %+v", doc)
	}

	file := filepath.Join(t.TempDir(), "chat.md")
	out, err = env.run(t, "archive", "export", chats[0].ID, "-o", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Exported") {
		t.Errorf("out = %q", out)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Berlin in May") {
		t.Errorf("markdown export = %q", data)
	}

	if _, err := env.run(t, "archive", "export", chats[0].ID, "--format", "pdf"); err == nil {
		t.Error("unknown formats should fail")
	}
}

func TestArchiveDeleteAndClear(t *testing.T) {
	env := newTestEnv(t)
	chats := seedArchive(t, env)

	out, err := env.run(t, "archive", "delete", chats[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Deleted chat: "+chats[0].ID) {
		t.Errorf("out = %q", out)
	}

	out, err = env.run(t, "archive", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Deleted 1 chats.") {
		t.Errorf("out = %q", out)
	}

	store, _ := history.NewStore(env.dir)
	remaining, _ := store.List()
	if len(remaining) != 0 {
		t.Errorf("remaining = %d", len(remaining))
	}
}

func TestArchiveBrowse(t *testing.T) {
	t.Run("piped output lists", func(t *testing.T) {
		env := newTestEnv(t)
		seedArchive(t, env)

		out, err := env.run(t, "archive")
		if err != nil {
			t.Fatal(err)
		}
		if env.tui.browserCalls != 0 {
			t.Error("the browser needs a terminal")
		}
		if !strings.Contains(out, "Flights to Tokyo") {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("terminal opens browser", func(t *testing.T) {
		env := newTestEnv(t)
		env.terminal = true
		chats := seedArchive(t, env)
		env.tui.browserChat = chats[1]

		out, err := env.run(t, "archive")
		if err != nil {
			t.Fatal(err)
		}
		if env.tui.browserCalls != 1 {
			t.Errorf("browserCalls = %d", env.tui.browserCalls)
		}
		if !strings.Contains(out, "Tokyo") {
			t.Errorf("selected chat not printed: %q", out)
		}
	})
}
