package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewNormalisesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)

	logger.Info("poll failed", "error", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "err=boom") {
		t.Errorf("output %q should use the err key", out)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info level, got %q", buf.String())
	}
}

func TestLevel(t *testing.T) {
	if Level(true) != slog.LevelDebug {
		t.Error("verbose should enable debug")
	}
	if Level(false) != slog.LevelInfo {
		t.Error("default level should be info")
	}
}

func TestOpenWithoutPath(t *testing.T) {
	logger, closeFn, err := Open("", false)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer closeFn()

	logger.Info("discarded")
}

func TestOpenWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agentchat.log")

	logger, closeFn, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	logger.Debug("fetched history", "turns", 3)
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "turns=3") {
		t.Errorf("log file = %q", data)
	}
}
