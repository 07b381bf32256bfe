package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/agentchat/internal/history"
)

// ArchiveBrowserStore is the part of the archive the browser needs
type ArchiveBrowserStore interface {
	List() ([]*history.Chat, error)
	Search(query string) ([]*history.SearchResult, error)
	Delete(id string) error
}

// BrowserMode represents the current mode of the archive browser
type BrowserMode int

const (
	ModeNormal BrowserMode = iota
	ModeSearch
	ModeConfirmDelete
)

// archiveRow is one listed chat, with the snippet that matched a search
type archiveRow struct {
	chat    *history.Chat
	snippet string
}

// archiveLoadedMsg is sent when chats are loaded or searched
type archiveLoadedMsg struct {
	rows []archiveRow
	err  error
}

// ArchiveBrowserModel lists archived chats
type ArchiveBrowserModel struct {
	store ArchiveBrowserStore
	now   func() time.Time

	rows   []archiveRow
	cursor int

	loading bool
	err     error
	mode    BrowserMode

	searchInput textinput.Model
	searchQuery string

	deleteID    string
	deleteTitle string

	selected   *history.Chat
	shouldQuit bool
	feedback   string

	width  int
	height int
	ready  bool
}

// NewArchiveBrowserModel creates a new archive browser
func NewArchiveBrowserModel(store ArchiveBrowserStore) ArchiveBrowserModel {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search titles and messages..."
	searchInput.CharLimit = 80

	return ArchiveBrowserModel{
		store:       store,
		now:         time.Now,
		loading:     true,
		mode:        ModeNormal,
		searchInput: searchInput,
	}
}

// Init starts loading chats
func (m ArchiveBrowserModel) Init() tea.Cmd {
	return m.load()
}

// load lists all chats, or the search results when a query is active
func (m ArchiveBrowserModel) load() tea.Cmd {
	store, query := m.store, m.searchQuery
	return func() tea.Msg {
		if query != "" {
			results, err := store.Search(query)
			if err != nil {
				return archiveLoadedMsg{err: err}
			}
			rows := make([]archiveRow, 0, len(results))
			for _, r := range results {
				row := archiveRow{chat: r.Chat}
				if r.MatchField == "content" {
					row.snippet = r.MatchSnippet
				}
				rows = append(rows, row)
			}
			return archiveLoadedMsg{rows: rows}
		}

		chats, err := store.List()
		if err != nil {
			return archiveLoadedMsg{err: err}
		}
		rows := make([]archiveRow, 0, len(chats))
		for _, c := range chats {
			rows = append(rows, archiveRow{chat: c})
		}
		return archiveLoadedMsg{rows: rows}
	}
}

// Update handles messages and updates the model
func (m ArchiveBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case archiveLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.rows = msg.rows
		if m.cursor >= len(m.rows) {
			m.cursor = max(0, len(m.rows)-1)
		}

	case tea.KeyMsg:
		if m.loading {
			if msg.String() == "ctrl+c" {
				m.shouldQuit = true
				return m, tea.Quit
			}
			return m, nil
		}

		switch m.mode {
		case ModeSearch:
			return m.updateSearchMode(msg)
		case ModeConfirmDelete:
			return m.updateConfirmDeleteMode(msg)
		default:
			return m.updateNormalMode(msg)
		}
	}

	return m, nil
}

func (m ArchiveBrowserModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		if m.searchQuery != "" && msg.String() == "esc" {
			m.searchQuery = ""
			m.loading = true
			return m, m.load()
		}
		m.shouldQuit = true
		return m, tea.Quit

	case "up", "k":
		if len(m.rows) > 0 {
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(m.rows) - 1
			}
		}

	case "down", "j":
		if len(m.rows) > 0 {
			m.cursor++
			if m.cursor >= len(m.rows) {
				m.cursor = 0
			}
		}

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		if len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
		}

	case "enter":
		if len(m.rows) > 0 {
			m.selected = m.rows[m.cursor].chat
			return m, tea.Quit
		}

	case "d":
		if len(m.rows) > 0 {
			c := m.rows[m.cursor].chat
			m.mode = ModeConfirmDelete
			m.deleteID = c.ID
			m.deleteTitle = c.Title
		}

	case "/":
		m.mode = ModeSearch
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.Focus()
		return m, textinput.Blink
	}

	return m, nil
}

func (m ArchiveBrowserModel) updateSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.searchInput.Blur()
		return m, nil

	case "enter":
		m.searchQuery = strings.TrimSpace(m.searchInput.Value())
		m.mode = ModeNormal
		m.searchInput.Blur()
		m.cursor = 0
		m.loading = true
		return m, m.load()

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
}

func (m ArchiveBrowserModel) updateConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = ModeNormal
		if err := m.store.Delete(m.deleteID); err != nil {
			m.feedback = fmt.Sprintf("✗ %v", err)
			return m, nil
		}
		m.feedback = fmt.Sprintf("✓ Deleted '%s'", truncateTitle(m.deleteTitle, 30))
		m.loading = true
		return m, m.load()

	case "n", "N", "esc":
		m.mode = ModeNormal
	}

	return m, nil
}

// View renders the browser
func (m ArchiveBrowserModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if m.loading {
		return loadingStyle.Render("  Loading chats...")
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("  Error: %v", m.err))
	}

	contentWidth := max(m.width-4, 40)

	sections := []string{m.renderHeader(contentWidth), m.renderList(contentWidth)}

	if m.feedback != "" {
		sections = append(sections, menuFeedbackStyle.Render("  "+m.feedback))
	}

	switch m.mode {
	case ModeSearch:
		label := menuSectionTitleStyle.Render("Search:")
		hint := hintStyle.Render("  Enter: Search  Esc: Cancel")
		sections = append(sections, menuPanelStyle.Width(contentWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, label, m.searchInput.View(), hint)))
	case ModeConfirmDelete:
		question := errorStyle.Render(fmt.Sprintf("Delete '%s'?", truncateTitle(m.deleteTitle, 30)))
		hint := hintStyle.Render("  Y: Confirm  N/Esc: Cancel")
		sections = append(sections, menuPanelStyle.Width(contentWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, question, hint)))
	}

	sections = append(sections, m.renderStatusBar(contentWidth))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ArchiveBrowserModel) renderHeader(width int) string {
	title := menuTitleStyle.Render("Archived Chats")
	info := hintStyle.Render(fmt.Sprintf("  %d chats", len(m.rows)))
	if m.searchQuery != "" {
		info = hintStyle.Render(fmt.Sprintf("  Search: %q (%d)", m.searchQuery, len(m.rows)))
	}
	return menuHeaderStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Center, title, info))
}

func (m ArchiveBrowserModel) renderList(width int) string {
	var items []string

	if len(m.rows) == 0 {
		if m.searchQuery != "" {
			items = append(items, hintStyle.Render(fmt.Sprintf("  No chats matching '%s'", m.searchQuery)))
		} else {
			items = append(items, hintStyle.Render("  No archived chats yet"))
		}
		return menuPanelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
	}

	maxItems := max(5, (m.height-12)/2)
	scrollOffset := 0
	if m.cursor >= maxItems {
		scrollOffset = m.cursor - maxItems + 1
	}
	endIdx := min(scrollOffset+maxItems, len(m.rows))

	if scrollOffset > 0 {
		items = append(items, hintStyle.Render("  ↑ more..."))
	}
	for i := scrollOffset; i < endIdx; i++ {
		items = append(items, m.renderItem(i, m.rows[i]))
	}
	if endIdx < len(m.rows) {
		items = append(items, hintStyle.Render("  ↓ more..."))
	}

	return menuPanelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m ArchiveBrowserModel) renderItem(index int, row archiveRow) string {
	cursor := "  "
	style := menuItemStyle
	if index == m.cursor {
		cursor = menuCursorStyle.Render("▸ ")
		style = menuSelectedStyle
	}

	c := row.chat
	indexStr := menuValueStyle.Render(fmt.Sprintf("%2d.", index+1))
	status := menuEnabledStyle.Render("● ")
	if c.Ended {
		status = menuValueStyle.Render("✓ ")
	}

	msgCount := len(history.Messages(c.Turns))
	info := menuValueStyle.Render(fmt.Sprintf(" (%d msgs, %s)", msgCount, history.FormatRelativeTime(c.UpdatedAt, m.now())))

	line := fmt.Sprintf("%s%s %s%s%s", cursor, indexStr, status, style.Render(truncateTitle(c.Title, 40)), info)
	if row.snippet != "" {
		line += "\n      " + hintStyle.Render(row.snippet)
	}
	return line
}

func (m ArchiveBrowserModel) renderStatusBar(width int) string {
	type shortcut struct {
		key  string
		desc string
	}

	var shortcuts []shortcut
	switch m.mode {
	case ModeSearch:
		shortcuts = []shortcut{{"Enter", "Search"}, {"Esc", "Cancel"}}
	case ModeConfirmDelete:
		shortcuts = []shortcut{{"Y", "Delete"}, {"N", "Cancel"}}
	default:
		shortcuts = []shortcut{{"↑↓", "Nav"}, {"Enter", "Open"}, {"d", "Del"}, {"/", "Search"}, {"q", "Quit"}}
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return menuStatusBarStyle.Width(width).Render(strings.Join(items, "  "))
}

// Result returns the selected chat (nil if none selected)
func (m ArchiveBrowserModel) Result() (*history.Chat, bool) {
	return m.selected, m.shouldQuit
}

// RunArchiveBrowser starts the browser and returns the chat the user
// opened, or nil when they quit.
func RunArchiveBrowser(store ArchiveBrowserStore) (*history.Chat, error) {
	p := tea.NewProgram(NewArchiveBrowserModel(store), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	if bm, ok := finalModel.(ArchiveBrowserModel); ok {
		chat, _ := bm.Result()
		return chat, nil
	}
	return nil, nil
}

// truncateTitle truncates a title to maxLen runes
func truncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen]) + "..."
}
