// Package tui provides the terminal user interface for agentchat.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/render"
)

// Color variables (updated from palette)
var (
	colorBorder      lipgloss.Color
	colorTitle       lipgloss.Color
	colorUserBubble  lipgloss.Color
	colorAgentBubble lipgloss.Color
	colorBubbleText  lipgloss.Color
	colorLink        lipgloss.Color
	colorConfirm     lipgloss.Color
	colorWarning     lipgloss.Color
	colorError       lipgloss.Color
	colorText        lipgloss.Color
	colorTextDim     lipgloss.Color
)

// Style variables (rebuilt when the palette changes)
var (
	// Header panel style
	headerStyle lipgloss.Style

	// Title style for header
	titleStyle lipgloss.Style

	// Subtitle/backend URL style
	subtitleStyle lipgloss.Style

	// Hint text style
	hintStyle lipgloss.Style

	// Messages area panel
	messagesAreaStyle lipgloss.Style

	// Bubbles
	userBubbleStyle  lipgloss.Style
	userLabelStyle   lipgloss.Style
	agentBubbleStyle lipgloss.Style
	agentLabelStyle  lipgloss.Style
	linkStyle        lipgloss.Style

	// Confirmation card
	cardStyle        lipgloss.Style
	cardTitleStyle   lipgloss.Style
	cardArgStyle     lipgloss.Style
	cardToggleStyle  lipgloss.Style
	cardRunningStyle lipgloss.Style
	choseToolStyle   lipgloss.Style

	// Error banner
	bannerStyle lipgloss.Style

	// Chat ended marker
	endedStyle lipgloss.Style

	// Input area panel
	inputPanelStyle lipgloss.Style

	// Input label style
	inputLabelStyle lipgloss.Style

	// Loading/spinner style
	loadingStyle lipgloss.Style

	// Status bar styles
	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style

	// Error style
	errorStyle lipgloss.Style

	// Welcome styles
	welcomeStyle      lipgloss.Style
	welcomeTitleStyle lipgloss.Style

	// Menu styles shared by the archive browser and config editor
	menuHeaderStyle       lipgloss.Style
	menuTitleStyle        lipgloss.Style
	menuPanelStyle        lipgloss.Style
	menuSectionTitleStyle lipgloss.Style
	menuItemStyle         lipgloss.Style
	menuSelectedStyle     lipgloss.Style
	menuCursorStyle       lipgloss.Style
	menuValueStyle        lipgloss.Style
	menuEnabledStyle      lipgloss.Style
	menuDisabledStyle     lipgloss.Style
	menuFeedbackStyle     lipgloss.Style
	menuStatusBarStyle    lipgloss.Style
)

// Gradient colors for the loading animation (fixed colors)
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#ff9ff3"), // Pink
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#5f27cd"), // Purple
	lipgloss.Color("#00d2d3"), // Teal
	lipgloss.Color("#1dd1a1"), // Green
}

func init() {
	UpdateTheme()
}

// UpdateTheme refreshes all styles from the current palette
func UpdateTheme() {
	p := render.CurrentPalette()

	colorBorder = p.Border
	colorTitle = p.Title
	colorUserBubble = p.UserBubble
	colorAgentBubble = p.AgentBubble
	colorBubbleText = p.BubbleText
	colorLink = p.Link
	colorConfirm = p.Confirm
	colorWarning = p.Warning
	colorError = p.Error
	colorText = p.Text
	colorTextDim = p.TextDim

	rebuildStyles()
}

// rebuildStyles creates all lipgloss styles with current color values
func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	// User bubbles sit on the right, agent bubbles on the left
	userBubbleStyle = lipgloss.NewStyle().
		Background(colorUserBubble).
		Foreground(colorBubbleText).
		Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true)

	agentBubbleStyle = lipgloss.NewStyle().
		Background(colorAgentBubble).
		Foreground(colorBubbleText).
		Padding(0, 1)

	agentLabelStyle = lipgloss.NewStyle().
		Foreground(colorConfirm).
		Bold(true)

	linkStyle = lipgloss.NewStyle().
		Foreground(colorLink).
		Underline(true)

	cardStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(colorConfirm).
		PaddingLeft(1).
		MarginTop(1)

	cardTitleStyle = lipgloss.NewStyle().
		Foreground(colorConfirm).
		Bold(true)

	cardArgStyle = lipgloss.NewStyle().
		Foreground(colorText)

	cardToggleStyle = lipgloss.NewStyle().
		Foreground(colorLink).
		Italic(true)

	cardRunningStyle = lipgloss.NewStyle().
		Foreground(colorWarning).
		Bold(true)

	choseToolStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true)

	bannerStyle = lipgloss.NewStyle().
		Background(colorError).
		Foreground(lipgloss.Color("#ffffff")).
		Bold(true).
		Padding(0, 2)

	endedStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true).
		MarginRight(1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorLink).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)

	welcomeStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Align(lipgloss.Center)

	welcomeTitleStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true).
		Align(lipgloss.Center)

	menuHeaderStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true).
		MarginBottom(1).
		Align(lipgloss.Center)

	menuTitleStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Bold(true).
		PaddingLeft(1)

	menuPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1, 2)

	menuSectionTitleStyle = lipgloss.NewStyle().
		Foreground(colorConfirm).
		Bold(true)

	menuItemStyle = lipgloss.NewStyle().
		Foreground(colorText)

	menuSelectedStyle = lipgloss.NewStyle().
		Foreground(colorLink).
		Bold(true)

	menuCursorStyle = lipgloss.NewStyle().
		Foreground(colorLink)

	menuValueStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	menuEnabledStyle = lipgloss.NewStyle().
		Foreground(colorConfirm)

	menuDisabledStyle = lipgloss.NewStyle().
		Foreground(colorError)

	menuFeedbackStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true).
		MarginTop(1)

	menuStatusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		MarginTop(1).
		Align(lipgloss.Center)
}

// FormatError returns a styled error message with additional context
// taken from the structured error types.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", err)))

	if status := errors.GetHTTPStatus(err); status > 0 && !errors.IsNetworkError(err) {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := errors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	switch {
	case errors.IsNotFound(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The workflow is not running yet. Try 'agentchat start'"))
	case errors.IsNetworkError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Is the backend running? Check --api-url or try 'agentchat serve-dev'"))
	case errors.IsParseError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The backend answered with an unexpected payload"))
	}

	return sb.String()
}

// PrintError prints a styled error message to stderr.
func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, FormatError(err))
}
