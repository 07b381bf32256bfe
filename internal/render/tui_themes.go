package render

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the color scheme of the chat screen
type Palette struct {
	Name        string
	Description string

	Border lipgloss.Color
	Title  lipgloss.Color

	// Bubbles
	UserBubble  lipgloss.Color
	AgentBubble lipgloss.Color
	BubbleText  lipgloss.Color

	Link    lipgloss.Color
	Confirm lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

// Built-in palettes
var (
	TokyoNightPalette = Palette{
		Name:        "tokyonight",
		Description: "Tokyo Night, dark with blue accents",
		Border:      lipgloss.Color("#414868"),
		Title:       lipgloss.Color("#7aa2f7"),
		UserBubble:  lipgloss.Color("#2f3f6e"),
		AgentBubble: lipgloss.Color("#2a2e42"),
		BubbleText:  lipgloss.Color("#c0caf5"),
		Link:        lipgloss.Color("#7dcfff"),
		Confirm:     lipgloss.Color("#9ece6a"),
		Warning:     lipgloss.Color("#e0af68"),
		Error:       lipgloss.Color("#f7768e"),
		Text:        lipgloss.Color("#c0caf5"),
		TextDim:     lipgloss.Color("#565f89"),
	}

	CatppuccinPalette = Palette{
		Name:        "catppuccin",
		Description: "Catppuccin Mocha, warm pastels",
		Border:      lipgloss.Color("#45475a"),
		Title:       lipgloss.Color("#cba6f7"),
		UserBubble:  lipgloss.Color("#1e3a5f"),
		AgentBubble: lipgloss.Color("#313244"),
		BubbleText:  lipgloss.Color("#cdd6f4"),
		Link:        lipgloss.Color("#89b4fa"),
		Confirm:     lipgloss.Color("#a6e3a1"),
		Warning:     lipgloss.Color("#f9e2af"),
		Error:       lipgloss.Color("#f38ba8"),
		Text:        lipgloss.Color("#cdd6f4"),
		TextDim:     lipgloss.Color("#6c7086"),
	}

	NordPalette = Palette{
		Name:        "nord",
		Description: "Nord, cool arctic tones",
		Border:      lipgloss.Color("#4c566a"),
		Title:       lipgloss.Color("#88c0d0"),
		UserBubble:  lipgloss.Color("#34496b"),
		AgentBubble: lipgloss.Color("#3b4252"),
		BubbleText:  lipgloss.Color("#eceff4"),
		Link:        lipgloss.Color("#81a1c1"),
		Confirm:     lipgloss.Color("#a3be8c"),
		Warning:     lipgloss.Color("#ebcb8b"),
		Error:       lipgloss.Color("#bf616a"),
		Text:        lipgloss.Color("#eceff4"),
		TextDim:     lipgloss.Color("#7b88a1"),
	}

	LightPalette = Palette{
		Name:        "light",
		Description: "Light, for bright terminals",
		Border:      lipgloss.Color("#d1d5db"),
		Title:       lipgloss.Color("#1f2937"),
		UserBubble:  lipgloss.Color("#dbeafe"),
		AgentBubble: lipgloss.Color("#e5e7eb"),
		BubbleText:  lipgloss.Color("#111827"),
		Link:        lipgloss.Color("#3b82f6"),
		Confirm:     lipgloss.Color("#16a34a"),
		Warning:     lipgloss.Color("#b45309"),
		Error:       lipgloss.Color("#ef4444"),
		Text:        lipgloss.Color("#111827"),
		TextDim:     lipgloss.Color("#6b7280"),
	}
)

var (
	paletteMu      sync.RWMutex
	currentPalette = TokyoNightPalette
)

// CurrentPalette returns the active palette
func CurrentPalette() Palette {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	return currentPalette
}

// SetPalette activates a palette by name. "auto" follows the terminal
// background. Unknown names leave the palette unchanged.
func SetPalette(name string) bool {
	p, ok := PaletteByName(name)
	if !ok {
		return false
	}
	paletteMu.Lock()
	currentPalette = p
	paletteMu.Unlock()
	return true
}

// PaletteByName looks up a built-in palette
func PaletteByName(name string) (Palette, bool) {
	switch name {
	case StyleAuto, "":
		if detectAutoStyle() == StyleLight {
			return LightPalette, true
		}
		return TokyoNightPalette, true
	case "tokyonight":
		return TokyoNightPalette, true
	case "catppuccin":
		return CatppuccinPalette, true
	case "nord":
		return NordPalette, true
	case "light":
		return LightPalette, true
	default:
		return Palette{}, false
	}
}

// PaletteNames lists the accepted tui_theme values
func PaletteNames() []string {
	return []string{StyleAuto, "tokyonight", "catppuccin", "nord", "light"}
}
