package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/agentchat/internal/api"
	"github.com/diogo/agentchat/internal/chat"
	"github.com/diogo/agentchat/internal/config"
	"github.com/diogo/agentchat/internal/history"
	"github.com/diogo/agentchat/internal/logging"
	"github.com/diogo/agentchat/internal/models"
	"github.com/diogo/agentchat/internal/render"
)

// noticeTimeout is how long status notices (copy results) stay visible
const noticeTimeout = 2 * time.Second

// action is a user initiated backend request
type action int

const (
	actionSend action = iota
	actionConfirm
	actionStart
	actionEnd
)

// context names the action in error banners
func (a action) context() string {
	switch a {
	case actionSend:
		return chat.ContextSending
	case actionConfirm:
		return chat.ContextConfirming
	case actionStart:
		return chat.ContextStarting
	default:
		return chat.ContextEnding
	}
}

func (a action) String() string {
	switch a {
	case actionSend:
		return "send"
	case actionConfirm:
		return "confirm"
	case actionStart:
		return "start"
	default:
		return "end"
	}
}

// Message types for the TUI
type (
	pollTickMsg      time.Time
	bannerExpireMsg  time.Time
	animationTickMsg time.Time
	noticeClearMsg   struct{ seq int }

	historyMsg struct {
		conv models.Conversation
		err  error
	}
	actionMsg struct {
		action action
		err    error
	}
	debounceMsg struct {
		gen int
	}
	archivedMsg struct {
		chat *history.Chat
		err  error
	}
	copiedMsg struct {
		err error
	}
)

// ArchiveStore saves finished conversations locally
type ArchiveStore interface {
	Save(id string, conv models.Conversation, baseURL string) (*history.Chat, error)
}

// Options configures the chat model
type Options struct {
	Config config.Config
	// Archive is nil when archiving is disabled.
	Archive   ArchiveStore
	Logger    *slog.Logger
	Clipboard func(string) error
	Now       func() time.Time
}

// Model represents the chat page state
type Model struct {
	client  api.AgentClientInterface
	cfg     config.Config
	archive ArchiveStore
	logger  *slog.Logger
	copy    func(string) error
	now     func() time.Time

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	state          *chat.State
	debounce       chat.Debouncer
	fetching       bool
	ready          bool
	crashed        bool
	animating      bool
	animationFrame int

	// Archive bookkeeping for the current conversation
	archiveID    string
	archived     bool
	archiveDirty bool

	notice    string
	noticeSeq int

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model
func NewChatModel(client api.AgentClientInterface, opts Options) Model {
	cfg := opts.Config
	if cfg.Title == "" {
		cfg.Title = config.DefaultConfig().Title
	}

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Blur()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return Model{
		client:   client,
		cfg:      cfg,
		archive:  opts.Archive,
		logger:   logger,
		copy:     copyFn,
		now:      now,
		textarea: ta,
		spinner:  s,
		state:    chat.NewState(cfg.ErrorDismiss()),
	}
}

// Init starts polling
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.pollTick(),
	)
}

// State exposes the page state
func (m Model) State() *chat.State {
	return m.state
}

func (m Model) pollTick() tea.Cmd {
	return tea.Tick(m.cfg.PollInterval(), func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func animationTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case pollTickMsg:
		cmds = append(cmds, m.pollTick())
		if !m.fetching {
			m.fetching = true
			cmds = append(cmds, m.fetchHistory())
		}

	case historyMsg:
		m.fetching = false
		cmds = append(cmds, m.applyHistory(msg))

	case actionMsg:
		cmds = append(cmds, m.applyAction(msg))

	case bannerExpireMsg:
		m.state.Tick(time.Time(msg))

	case debounceMsg:
		m.debounce.Settle(msg.gen)

	case archivedMsg:
		if msg.err != nil {
			m.logger.Warn("archive failed", "err", msg.err)
		} else if msg.chat != nil {
			m.archiveID = msg.chat.ID
			m.logger.Debug("conversation archived", "id", msg.chat.ID)
		}

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn("clipboard copy failed", "err", msg.err)
			cmds = append(cmds, m.setNotice("Copy failed: "+msg.err.Error()))
		} else {
			cmds = append(cmds, m.setNotice("Copied last reply to clipboard"))
		}

	case noticeClearMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}

	case spinner.TickMsg:
		if m.state.Loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.state.Loading {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		} else {
			m.animating = false
		}
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		if m.state.CanType() {
			before := m.textarea.Value()
			m.textarea, cmd = m.textarea.Update(key)
			cmds = append(cmds, cmd)
			if after := m.textarea.Value(); after != before {
				cmds = append(cmds, m.debounceInput(after))
			}
		}
		// Runes belong to the input, not to viewport scrolling
		if key.Type != tea.KeyRunes {
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	} else if _, ok := msg.(tea.MouseMsg); ok {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.syncInput())
	return m, tea.Batch(cmds...)
}

// handleKey processes shortcuts. handled is false for keys that should
// reach the input and viewport.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.archiveOnExit()
		return m, tea.Quit, true

	case "enter":
		prompt := strings.TrimSpace(m.textarea.Value())
		if !m.state.CanType() || prompt == "" {
			return m, nil, true
		}
		m.state.BeginRequest()
		cmd := tea.Batch(m.runAction(actionSend, prompt), m.startLoading())
		return m, cmd, true

	case "ctrl+o":
		if _, ok := m.state.PendingConfirmation(); !ok || m.state.Loading {
			return m, nil, true
		}
		m.state.BeginRequest()
		cmd := tea.Batch(m.runAction(actionConfirm, ""), m.startLoading())
		return m, cmd, true

	case "ctrl+a":
		entries := render.Entries(m.state.Conversation, m.state.Confirmed, m.state.ShowAllArgs)
		if n := len(entries); n > 0 && entries[n-1].Confirm != nil && entries[n-1].Confirm.Collapsible() {
			m.state.ShowAllArgs = !m.state.ShowAllArgs
			m.refreshViewport()
		}
		return m, nil, true

	case "ctrl+n":
		if !m.state.CanStartNew() || m.state.Loading {
			return m, nil, true
		}
		m.state.BeginRequest()
		return m, m.runAction(actionStart, ""), true

	case "ctrl+e":
		if m.state.Done {
			return m, nil, true
		}
		return m, m.runAction(actionEnd, ""), true

	case "ctrl+y":
		if !m.cfg.CopyToClipboard {
			return m, nil, true
		}
		text := m.state.LastAgentText()
		if text == "" {
			cmd := m.setNotice("Nothing to copy yet")
			return m, cmd, true
		}
		return m, m.copyText(text), true
	}

	return m, nil, false
}

// applyHistory folds a poll result into the page state
func (m *Model) applyHistory(msg historyMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Debug("history poll failed", "err", msg.err)
		m.state.Fail(msg.err, chat.ContextFetching, m.now())
		return m.bannerExpiry()
	}

	change := m.state.ApplyHistory(msg.conv)
	if change.ConversationChanged {
		m.archiveDirty = true
		m.logger.Debug("conversation changed", "turns", len(msg.conv), "loading", m.state.Loading, "done", m.state.Done)
	}
	if change.ConversationChanged || change.LastChanged {
		m.refreshViewport()
	}
	if change.LastChanged {
		m.viewport.GotoBottom()
	}

	var cmds []tea.Cmd
	if m.state.Loading {
		cmds = append(cmds, m.startLoading())
	}
	if m.state.Done && len(msg.conv) > 0 && !m.archived {
		m.archived = true
		cmds = append(cmds, m.archiveChat(msg.conv))
	}
	return tea.Batch(cmds...)
}

// applyAction handles the outcome of a user initiated request
func (m *Model) applyAction(msg actionMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("request failed", "action", msg.action.String(), "err", msg.err)
		if msg.action == actionEnd {
			m.state.Fail(msg.err, msg.action.context(), m.now())
		} else {
			m.state.FailRequest(msg.err, msg.action.context(), m.now())
		}
		return m.bannerExpiry()
	}

	m.logger.Debug("request succeeded", "action", msg.action.String())
	switch msg.action {
	case actionSend:
		m.textarea.Reset()
		m.debounce.Reset()
	case actionConfirm:
		m.state.ConfirmSucceeded()
		m.refreshViewport()
	case actionStart:
		m.state.StartSucceeded()
		m.archiveID = ""
		m.archived = false
		m.archiveDirty = false
		m.refreshViewport()
	}
	return nil
}

// bannerExpiry schedules the dismissal of an expiring banner
func (m Model) bannerExpiry() tea.Cmd {
	expires := m.state.Banner.ExpiresAt
	if !m.state.Banner.Visible || expires.IsZero() {
		return nil
	}
	return tea.Tick(expires.Sub(m.now()), func(time.Time) tea.Msg {
		return bannerExpireMsg(expires)
	})
}

func (m *Model) debounceInput(value string) tea.Cmd {
	gen := m.debounce.Change(value)
	return tea.Tick(m.cfg.Debounce(), func(time.Time) tea.Msg {
		return debounceMsg{gen: gen}
	})
}

func (m *Model) startLoading() tea.Cmd {
	if m.animating {
		return nil
	}
	m.animating = true
	m.animationFrame = 0
	return tea.Batch(m.spinner.Tick, animationTick())
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	seq := m.noticeSeq
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return noticeClearMsg{seq: seq}
	})
}

// syncInput focuses the input only while it accepts text
func (m *Model) syncInput() tea.Cmd {
	if m.state.CanType() {
		if !m.textarea.Focused() {
			return m.textarea.Focus()
		}
		return nil
	}
	m.textarea.Blur()
	return nil
}

func (m Model) fetchHistory() tea.Cmd {
	client, timeout := m.client, m.cfg.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		conv, err := client.GetConversationHistory(ctx)
		return historyMsg{conv: conv, err: err}
	}
}

func (m Model) runAction(a action, prompt string) tea.Cmd {
	client, timeout := m.client, m.cfg.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var err error
		switch a {
		case actionSend:
			_, err = client.SendMessage(ctx, prompt)
		case actionConfirm:
			_, err = client.Confirm(ctx)
		case actionStart:
			_, err = client.StartWorkflow(ctx)
		case actionEnd:
			_, err = client.EndChat(ctx)
		}
		return actionMsg{action: a, err: err}
	}
}

func (m Model) archiveChat(conv models.Conversation) tea.Cmd {
	if m.archive == nil {
		return nil
	}
	store, id, baseURL := m.archive, m.archiveID, m.client.BaseURL()
	return func() tea.Msg {
		saved, err := store.Save(id, conv, baseURL)
		return archivedMsg{chat: saved, err: err}
	}
}

// archiveOnExit saves an unfinished conversation before quitting
func (m *Model) archiveOnExit() {
	if m.archive == nil || !m.archiveDirty || len(m.state.Conversation) == 0 {
		return
	}
	if m.archived && m.state.Done {
		return
	}
	if _, err := m.archive.Save(m.archiveID, m.state.Conversation, m.client.BaseURL()); err != nil {
		m.logger.Warn("archive on exit failed", "err", err)
	}
}

func (m Model) copyText(text string) tea.Cmd {
	copyFn := m.copy
	return func() tea.Msg {
		return copiedMsg{err: copyFn(text)}
	}
}

// layout sizes the viewport and input from the window dimensions
func (m *Model) layout() {
	headerHeight := 3 // Header panel with border
	bannerHeight := 1 // Banner row, blank when hidden
	inputHeight := 5  // Input panel with border
	statusHeight := 1 // Status bar
	borders := 2      // Messages panel border

	vpHeight := m.height - headerHeight - bannerHeight - inputHeight - statusHeight - borders
	if vpHeight < 5 {
		vpHeight = 5
	}

	contentWidth := m.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.refreshViewport()
}

// refreshViewport re-renders the transcript. A panic while rendering
// switches the page to the error boundary.
func (m *Model) refreshViewport() {
	if !m.ready || m.crashed {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.crashed = true
			m.logger.Error("transcript render panicked", "panic", fmt.Sprint(r))
		}
	}()

	entries := render.Entries(m.state.Conversation, m.state.Confirmed, m.state.ShowAllArgs)
	md := render.OptionsFromConfig(m.cfg.Markdown, m.viewport.Width)
	content := newTranscript(m.viewport.Width, md).Render(entries, m.state.Done && len(m.state.Conversation) > 0)
	m.viewport.SetContent(content)
}

// View renders the TUI
func (m Model) View() (out string) {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	defer func() {
		if r := recover(); r != nil {
			out = errorStyle.Render(ErrorBoundaryMessage)
		}
	}()

	if m.crashed {
		return errorStyle.Render(ErrorBoundaryMessage)
	}

	contentWidth := m.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	var sections []string

	// Header
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render(m.cfg.Title),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.client.BaseURL()),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(header))

	// Error banner
	banner := ""
	if m.state.Banner.Visible {
		banner = bannerStyle.Render(m.state.Banner.Message)
	}
	sections = append(sections, lipgloss.PlaceHorizontal(contentWidth, lipgloss.Center, banner))

	// Messages area
	var messages string
	if len(m.state.Conversation.Visible()) == 0 {
		messages = m.renderWelcome()
	} else {
		messages = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messages))

	// Input area
	var input string
	if m.state.Loading {
		input = m.renderLoadingAnimation()
	} else {
		label := "You"
		if m.state.Done {
			label = "Chat ended"
		}
		input = lipgloss.JoinVertical(lipgloss.Left,
			inputLabelStyle.Render(label),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(input))

	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the empty transcript
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 2

	hint := "Waiting for the agent..."
	if m.state.Done {
		hint = "Press Ctrl+N to start a new chat"
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		welcomeTitleStyle.Width(width).Render(m.cfg.Title),
		"",
		welcomeStyle.Width(width).Render(hint),
	)

	topPadding := (m.viewport.Height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders a colorful animated loading indicator
func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spinIdx := frame % len(chars)
	spinColor := gradientColors[frame%len(gradientColors)]
	spin := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	text := lipgloss.NewStyle().Foreground(colorText).Render(" Agent is thinking ")

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, m.spinner.View())
}

// renderStatusBar renders the bottom status bar with the shortcuts that
// currently apply
func (m Model) renderStatusBar(width int) string {
	type shortcut struct {
		key  string
		desc string
	}

	var shortcuts []shortcut
	if m.state.CanType() {
		shortcuts = append(shortcuts, shortcut{"Enter", "Send"})
	}
	if _, ok := m.state.PendingConfirmation(); ok && !m.state.Loading {
		shortcuts = append(shortcuts, shortcut{"Ctrl+O", "Confirm"})
	}
	if m.state.CanStartNew() {
		shortcuts = append(shortcuts, shortcut{"Ctrl+N", "New chat"})
	} else {
		shortcuts = append(shortcuts, shortcut{"Ctrl+E", "End chat"})
	}
	if m.cfg.CopyToClipboard {
		shortcuts = append(shortcuts, shortcut{"Ctrl+Y", "Copy"})
	}
	shortcuts = append(shortcuts, shortcut{"↑↓", "Scroll"}, shortcut{"Esc", "Quit"})

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	bar := strings.Join(items, "  │  ")
	switch {
	case m.notice != "":
		bar += "  │  " + hintStyle.Render(m.notice)
	case m.debounce.Value() != "":
		bar += "  │  " + hintStyle.Render(fmt.Sprintf("%d chars", len([]rune(m.debounce.Value()))))
	}

	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// RunChat starts the chat TUI
func RunChat(client api.AgentClientInterface, opts Options) error {
	m := NewChatModel(client, opts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}
