package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/diogo/agentchat/internal/config"
)

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := env.deps.ConfigPath()
	if strings.TrimSpace(out) != want {
		t.Errorf("path = %q, want %q", out, want)
	}
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "config", "show", "--api-url", "http://flag:1")
	if err != nil {
		t.Fatal(err)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("show is not JSON: %v", err)
	}
	if cfg.APIURL != "http://flag:1" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.PollIntervalMS != 600 {
		t.Errorf("PollIntervalMS = %d", cfg.PollIntervalMS)
	}
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(config.Config) bool
	}{
		{"api_url", "http://other:8000/", false, func(c config.Config) bool { return c.APIURL == "http://other:8000" }},
		{"poll_interval_ms", "1000", false, func(c config.Config) bool { return c.PollIntervalMS == 1000 }},
		{"archive_chats", "false", false, func(c config.Config) bool { return !c.ArchiveChats }},
		{"poll_interval_ms", "soon", true, nil},
		{"no_such_key", "1", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.run(t, "config", "set", tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			path, _ := env.deps.ConfigPath()
			cfg, err := config.LoadConfigFrom(path)
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(cfg) {
				t.Errorf("saved config = %+v", cfg)
			}
		})
	}
}

func TestConfigSet_IgnoresFlags(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "config", "set", "verbose", "false", "--api-url", "http://flag:1"); err != nil {
		t.Fatal(err)
	}
	path, _ := env.deps.ConfigPath()
	cfg, _ := config.LoadConfigFrom(path)
	if cfg.APIURL != config.DefaultAPIURL {
		t.Errorf("flag leaked into the file: %q", cfg.APIURL)
	}
}

func TestConfigCommand_Interactive(t *testing.T) {
	env := newTestEnv(t)
	env.terminal = true

	if _, err := env.run(t, "config"); err != nil {
		t.Fatal(err)
	}
	if env.tui.configCalls != 1 {
		t.Fatalf("configCalls = %d", env.tui.configCalls)
	}

	cfg := config.DefaultConfig()
	cfg.Title = "Edited"
	if err := env.tui.configSave(cfg); err != nil {
		t.Fatal(err)
	}
	saved, _ := config.LoadConfigFrom(env.tui.configPath)
	if saved.Title != "Edited" {
		t.Errorf("saver wrote %+v", saved)
	}
}

func TestConfigCommand_Piped(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "config")
	if err != nil {
		t.Fatal(err)
	}
	if env.tui.configCalls != 0 {
		t.Error("the editor needs a terminal")
	}
	if !strings.Contains(out, `"api_url"`) {
		t.Errorf("out = %q", out)
	}
}
