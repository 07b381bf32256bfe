package commands

import (
	"os"

	"golang.org/x/term"

	"github.com/diogo/agentchat/internal/api"
	"github.com/diogo/agentchat/internal/config"
	"github.com/diogo/agentchat/internal/history"
	"github.com/diogo/agentchat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(client api.AgentClientInterface, opts tui.Options) error
	RunArchiveBrowser(store tui.ArchiveBrowserStore) (*history.Chat, error)
	RunConfig(cfg config.Config, configPath string, save tui.ConfigSaver) (config.Config, error)
}

// ClientFactory creates a backend client for baseURL.
type ClientFactory func(baseURL string, opts ...api.ClientOption) (api.AgentClientInterface, error)

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewClient creates the backend client.
	NewClient ClientFactory

	// TUI is the terminal user interface.
	TUI TUIInterface

	// ConfigPath locates the configuration file.
	ConfigPath func() (string, error)

	// OpenStore opens the chat archive.
	OpenStore func() (*history.Store, error)

	// IsTerminal reports whether stdout is an interactive terminal.
	IsTerminal func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(client api.AgentClientInterface, opts tui.Options) error {
	return tui.RunChat(client, opts)
}

func (d *DefaultTUI) RunArchiveBrowser(store tui.ArchiveBrowserStore) (*history.Chat, error) {
	return tui.RunArchiveBrowser(store)
}

func (d *DefaultTUI) RunConfig(cfg config.Config, configPath string, save tui.ConfigSaver) (config.Config, error) {
	return tui.RunConfig(cfg, configPath, save)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewClient: func(baseURL string, opts ...api.ClientOption) (api.AgentClientInterface, error) {
			return api.NewClient(baseURL, opts...)
		},
		TUI:        &DefaultTUI{},
		ConfigPath: config.GetConfigPath,
		OpenStore: func() (*history.Store, error) {
			dir, err := config.GetConfigDir()
			if err != nil {
				return nil, err
			}
			return history.NewStore(dir)
		},
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}
