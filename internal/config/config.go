// Package config handles configuration for agentchat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the backend the client talks to when nothing else is configured.
const DefaultAPIURL = "http://127.0.0.1:8000"

// EnvAPIURL overrides the configured backend URL.
const EnvAPIURL = "AGENTCHAT_API_URL"

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`             // "auto", "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`      // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"` // Preserve original line breaks
}

// Config represents the user configuration
type Config struct {
	APIURL string `json:"api_url"`
	Title  string `json:"title"`
	// PollIntervalMS is how often the history endpoint is polled.
	PollIntervalMS int `json:"poll_interval_ms"`
	// ErrorDismissMS is how long a non-404 error banner stays visible.
	ErrorDismissMS int `json:"error_dismiss_ms"`
	// DebounceMS is how long input must be idle before it is considered settled.
	DebounceMS int `json:"debounce_ms"`
	// RequestTimeoutSec bounds every backend request.
	RequestTimeoutSec int `json:"request_timeout_sec"`
	// ArchiveChats saves finished conversations under the history directory.
	ArchiveChats    bool           `json:"archive_chats"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	Verbose         bool           `json:"verbose"`
	LogFile         string         `json:"log_file,omitempty"`
	TUITheme        string         `json:"tui_theme,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "auto",
		EnableEmoji:      true,
		PreserveNewLines: true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		APIURL:            DefaultAPIURL,
		Title:             "Temporal AI Agent 🤖",
		PollIntervalMS:    600,
		ErrorDismissMS:    3000,
		DebounceMS:        300,
		RequestTimeoutSec: 10,
		ArchiveChats:      true,
		CopyToClipboard:   true,
		Verbose:           false,
		TUITheme:          "tokyonight",
		Markdown:          DefaultMarkdownConfig(),
	}
}

// PollInterval returns the poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return durationMS(c.PollIntervalMS, 600)
}

// ErrorDismiss returns the banner auto-dismiss delay.
func (c Config) ErrorDismiss() time.Duration {
	return durationMS(c.ErrorDismissMS, 3000)
}

// Debounce returns the input debounce delay.
func (c Config) Debounce() time.Duration {
	return durationMS(c.DebounceMS, 300)
}

// RequestTimeout returns the per-request timeout.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func durationMS(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".agentchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk.
// The AGENTCHAT_API_URL environment variable wins over the file.
func LoadConfig() (Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return applyEnv(DefaultConfig()), err
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom loads the configuration from an explicit path.
func LoadConfigFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil // Use defaults if config doesn't exist
		}
		return applyEnv(cfg), fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return applyEnv(DefaultConfig()), fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if u := strings.TrimSpace(os.Getenv(EnvAPIURL)); u != "" {
		cfg.APIURL = u
	}
	return cfg
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}
	return SaveConfigTo(filepath.Join(configDir, "config.json"), cfg)
}

// SaveConfigTo saves the configuration to an explicit path.
func SaveConfigTo(configPath string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Set updates a single configuration key from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_url":
		c.APIURL = strings.TrimSuffix(strings.TrimSpace(value), "/")
	case "title":
		c.Title = value
	case "poll_interval_ms":
		return setInt(&c.PollIntervalMS, key, value)
	case "error_dismiss_ms":
		return setInt(&c.ErrorDismissMS, key, value)
	case "debounce_ms":
		return setInt(&c.DebounceMS, key, value)
	case "request_timeout_sec":
		return setInt(&c.RequestTimeoutSec, key, value)
	case "archive_chats":
		return setBool(&c.ArchiveChats, key, value)
	case "copy_to_clipboard":
		return setBool(&c.CopyToClipboard, key, value)
	case "verbose":
		return setBool(&c.Verbose, key, value)
	case "log_file":
		c.LogFile = value
	case "tui_theme":
		c.TUITheme = value
	case "markdown.style":
		c.Markdown.Style = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Keys lists the keys accepted by Set.
func Keys() []string {
	return []string{
		"api_url", "title", "poll_interval_ms", "error_dismiss_ms", "debounce_ms",
		"request_timeout_sec", "archive_chats", "copy_to_clipboard", "verbose",
		"log_file", "tui_theme", "markdown.style",
	}
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer", key)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false", key)
	}
	*dst = b
	return nil
}
