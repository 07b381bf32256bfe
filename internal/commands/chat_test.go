package commands

import (
	"errors"
	"testing"

	"github.com/diogo/agentchat/internal/config"
)

func TestChatCommand(t *testing.T) {
	tests := []struct {
		name        string
		archive     bool
		args        []string
		wantURL     string
		wantArchive bool
	}{
		{
			name:        "defaults",
			archive:     true,
			args:        []string{"chat"},
			wantURL:     config.DefaultAPIURL,
			wantArchive: true,
		},
		{
			name:    "archive disabled",
			archive: false,
			args:    []string{"chat"},
			wantURL: config.DefaultAPIURL,
		},
		{
			name:        "api url flag",
			archive:     true,
			args:        []string{"chat", "--api-url", "http://localhost:9999"},
			wantURL:     "http://localhost:9999",
			wantArchive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			cfg := config.DefaultConfig()
			cfg.ArchiveChats = tt.archive
			path, _ := env.deps.ConfigPath()
			if err := config.SaveConfigTo(path, cfg); err != nil {
				t.Fatal(err)
			}

			if _, err := env.run(t, tt.args...); err != nil {
				t.Fatal(err)
			}

			if env.tui.chatCalls != 1 {
				t.Fatalf("chatCalls = %d", env.tui.chatCalls)
			}
			if env.client.URL != tt.wantURL {
				t.Errorf("client URL = %q, want %q", env.client.URL, tt.wantURL)
			}
			if (env.tui.chatOpts.Archive != nil) != tt.wantArchive {
				t.Errorf("archive wired = %v, want %v", env.tui.chatOpts.Archive != nil, tt.wantArchive)
			}
			if env.tui.chatOpts.Logger == nil {
				t.Error("chat should receive a logger")
			}
			if !env.client.CloseCalled {
				t.Error("client should be closed after the chat")
			}
		})
	}
}

func TestChatCommand_Error(t *testing.T) {
	env := newTestEnv(t)
	env.tui.chatErr = errors.New("terminal gone")

	if _, err := env.run(t, "chat"); err == nil || err.Error() != "terminal gone" {
		t.Errorf("err = %v", err)
	}
}

func TestChatCommand_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	env.deps.ConfigPath = func() (string, error) { return "", errors.New("no home") }

	if _, err := env.run(t, "chat"); err == nil {
		t.Error("config errors should abort the chat")
	}
	if env.tui.chatCalls != 0 {
		t.Error("chat must not start")
	}
}
