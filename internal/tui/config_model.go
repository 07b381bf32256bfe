package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/agentchat/internal/config"
	"github.com/diogo/agentchat/internal/render"
)

// configView represents the current view in the config menu
type configView int

const (
	viewMain configView = iota
	viewThemeSelect
	viewPaletteSelect
)

// Menu item indices for the main view
const (
	menuArchiveChats = iota
	menuCopyToClipboard
	menuVerbose
	menuTheme
	menuPalette
	menuExit
	menuItemCount
)

// feedbackClearMsg is sent to clear feedback messages
type feedbackClearMsg struct{}

// ConfigSaver persists a configuration
type ConfigSaver func(config.Config) error

// ConfigModel edits the user configuration
type ConfigModel struct {
	config     config.Config
	configPath string
	save       ConfigSaver

	view          configView
	cursor        int
	themeCursor   int
	paletteCursor int

	feedback        string
	feedbackTimeout time.Duration

	width  int
	height int
	ready  bool
}

// NewConfigModel creates a config editor for cfg. save is called after
// every change.
func NewConfigModel(cfg config.Config, configPath string, save ConfigSaver) ConfigModel {
	return ConfigModel{
		config:          cfg,
		configPath:      configPath,
		save:            save,
		themeCursor:     indexOf(render.ThemeNames(), cfg.Markdown.Style),
		paletteCursor:   indexOf(render.PaletteNames(), cfg.TUITheme),
		feedbackTimeout: 2 * time.Second,
	}
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return 0
}

// Init initializes the model
func (m ConfigModel) Init() tea.Cmd {
	return nil
}

// Config returns the edited configuration
func (m ConfigModel) Config() config.Config {
	return m.config
}

func clearFeedback(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return feedbackClearMsg{}
	})
}

// Update handles messages and updates the model
func (m ConfigModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case feedbackClearMsg:
		m.feedback = ""

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.view != viewMain {
				m.view = viewMain
			} else {
				return m, tea.Quit
			}

		case "up", "k":
			m.move(-1)

		case "down", "j":
			m.move(1)

		case "enter", " ":
			return m.handleSelect()
		}
	}

	return m, nil
}

// move shifts the cursor of the current view, wrapping around
func (m *ConfigModel) move(delta int) {
	wrap := func(i, n int) int {
		return ((i+delta)%n + n) % n
	}
	switch m.view {
	case viewMain:
		m.cursor = wrap(m.cursor, menuItemCount)
	case viewThemeSelect:
		m.themeCursor = wrap(m.themeCursor, len(render.ThemeNames()))
	case viewPaletteSelect:
		m.paletteCursor = wrap(m.paletteCursor, len(render.PaletteNames()))
	}
}

// handleSelect handles menu item selection
func (m ConfigModel) handleSelect() (tea.Model, tea.Cmd) {
	switch m.view {
	case viewThemeSelect:
		m.config.Markdown.Style = render.ThemeNames()[m.themeCursor]
		m.view = viewMain
		return m, m.persist(fmt.Sprintf("Markdown theme set to %s", m.config.Markdown.Style))

	case viewPaletteSelect:
		name := render.PaletteNames()[m.paletteCursor]
		m.config.TUITheme = name
		render.SetPalette(name)
		UpdateTheme()
		m.view = viewMain
		return m, m.persist(fmt.Sprintf("TUI theme set to %s", name))
	}

	switch m.cursor {
	case menuArchiveChats:
		m.config.ArchiveChats = !m.config.ArchiveChats
		return m, m.persist("Chat archive " + stateWord(m.config.ArchiveChats))
	case menuCopyToClipboard:
		m.config.CopyToClipboard = !m.config.CopyToClipboard
		return m, m.persist("Copy to clipboard " + stateWord(m.config.CopyToClipboard))
	case menuVerbose:
		m.config.Verbose = !m.config.Verbose
		return m, m.persist("Verbose logging " + stateWord(m.config.Verbose))
	case menuTheme:
		m.view = viewThemeSelect
	case menuPalette:
		m.view = viewPaletteSelect
	case menuExit:
		return m, tea.Quit
	}
	return m, nil
}

// persist saves the configuration and reports the outcome
func (m *ConfigModel) persist(success string) tea.Cmd {
	if m.save != nil {
		if err := m.save(m.config); err != nil {
			m.feedback = fmt.Sprintf("Error: %v", err)
			return clearFeedback(m.feedbackTimeout)
		}
	}
	m.feedback = success
	return clearFeedback(m.feedbackTimeout)
}

func stateWord(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// View renders the TUI
func (m ConfigModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := max(m.width-4, 40)

	sections := []string{
		menuHeaderStyle.Width(contentWidth).Render(menuTitleStyle.Render("Configuration")),
		menuPanelStyle.Width(contentWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
			menuSectionTitleStyle.Render("Backend"),
			fmt.Sprintf("   API URL: %s", menuValueStyle.Render(m.config.APIURL)),
			fmt.Sprintf("   Config:  %s", menuValueStyle.Render(m.configPath)),
		)),
	}

	var body string
	switch m.view {
	case viewThemeSelect:
		body = m.renderChoices("Select Markdown Theme", render.ThemeNames(), m.themeCursor, m.config.Markdown.Style)
	case viewPaletteSelect:
		body = m.renderChoices("Select TUI Theme", render.PaletteNames(), m.paletteCursor, m.config.TUITheme)
	default:
		body = m.renderMainMenu()
	}
	sections = append(sections, menuPanelStyle.Width(contentWidth).Render(body))

	if m.feedback != "" {
		sections = append(sections, menuFeedbackStyle.Render("✓ "+m.feedback))
	}

	back := "Exit"
	if m.view != viewMain {
		back = "Back"
	}
	bar := strings.Join([]string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Select"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" "+back),
	}, "  │  ")
	sections = append(sections, menuStatusBarStyle.Width(contentWidth).Render(bar))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ConfigModel) renderMainMenu() string {
	rows := []struct {
		label string
		value string
	}{
		{"Archive Chats", m.renderBoolValue(m.config.ArchiveChats)},
		{"Copy to Clipboard", m.renderBoolValue(m.config.CopyToClipboard)},
		{"Verbose Logging", m.renderBoolValue(m.config.Verbose)},
		{"Markdown Theme", menuValueStyle.Render(m.config.Markdown.Style)},
		{"TUI Theme", menuValueStyle.Render(m.config.TUITheme)},
	}

	items := []string{menuSectionTitleStyle.Render("Settings"), ""}
	for i, row := range rows {
		items = append(items, m.menuLine(i == m.cursor, fmt.Sprintf("%-20s", row.label))+row.value)
	}
	items = append(items, "", m.menuLine(m.cursor == menuExit, "Exit"))

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (m ConfigModel) renderChoices(title string, names []string, cursor int, current string) string {
	items := []string{menuSectionTitleStyle.Render(title), ""}
	for i, name := range names {
		line := m.menuLine(i == cursor, name)
		if name == current {
			line += menuEnabledStyle.Render(" (current)")
		}
		items = append(items, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (m ConfigModel) menuLine(selected bool, label string) string {
	if selected {
		return menuCursorStyle.Render("▸ ") + menuSelectedStyle.Render(label)
	}
	return "  " + menuItemStyle.Render(label)
}

// renderBoolValue renders a boolean value with appropriate styling
func (m ConfigModel) renderBoolValue(value bool) string {
	if value {
		return menuEnabledStyle.Render("enabled")
	}
	return menuDisabledStyle.Render("disabled")
}

// RunConfig starts the config TUI and returns the edited configuration
func RunConfig(cfg config.Config, configPath string, save ConfigSaver) (config.Config, error) {
	p := tea.NewProgram(NewConfigModel(cfg, configPath, save), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return cfg, err
	}
	if cm, ok := final.(ConfigModel); ok {
		return cm.Config(), nil
	}
	return cfg, nil
}
