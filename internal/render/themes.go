package render

import (
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
)

// Markdown styles
const (
	StyleAuto       = styles.AutoStyle
	StyleDark       = styles.DarkStyle
	StyleLight      = styles.LightStyle
	StyleNoTTY      = styles.NoTTYStyle
	StyleASCII      = styles.AsciiStyle
	StyleDracula    = styles.DraculaStyle
	StyleTokyoNight = styles.TokyoNightStyle
	StylePink       = styles.PinkStyle
)

var (
	autoOnce  sync.Once
	autoStyle string
)

// detectAutoStyle inspects stdout once: no color support yields notty,
// otherwise the background decides between dark and light.
func detectAutoStyle() string {
	autoOnce.Do(func() {
		out := termenv.NewOutput(os.Stdout)
		switch {
		case out.Profile == termenv.Ascii:
			autoStyle = StyleNoTTY
		case out.HasDarkBackground():
			autoStyle = StyleDark
		default:
			autoStyle = StyleLight
		}
	})
	return autoStyle
}

// ResolveStyle maps "auto" and the empty string to a concrete style.
// Other values are returned unchanged.
func ResolveStyle(style string) string {
	if style == "" || style == StyleAuto {
		return detectAutoStyle()
	}
	return style
}

// IsStandardStyle reports whether style names a style bundled with glamour.
func IsStandardStyle(style string) bool {
	if style == StyleAuto {
		return true
	}
	_, ok := styles.DefaultStyles[style]
	return ok
}

// styleOption picks the glamour option for a style: standard names load
// the bundled style, anything else is treated as a JSON style path.
func styleOption(style string) glamour.TermRendererOption {
	resolved := ResolveStyle(style)
	if _, ok := styles.DefaultStyles[resolved]; ok {
		return glamour.WithStandardStyle(resolved)
	}
	return glamour.WithStylePath(resolved)
}

// ThemeInfo describes a markdown style for listings.
type ThemeInfo struct {
	Name        string
	Description string
}

// AvailableThemes lists the markdown styles accepted by markdown.style.
func AvailableThemes() []ThemeInfo {
	return []ThemeInfo{
		{Name: StyleAuto, Description: "Dark or light, from the terminal background"},
		{Name: StyleDark, Description: "Dark theme"},
		{Name: StyleLight, Description: "Light theme for bright terminals"},
		{Name: StyleTokyoNight, Description: "Tokyo Night color scheme"},
		{Name: StyleDracula, Description: "Dracula color scheme"},
		{Name: StylePink, Description: "Pink accents"},
		{Name: StyleNoTTY, Description: "Plain text (no styling)"},
		{Name: StyleASCII, Description: "ASCII-only output"},
	}
}

// ThemeNames returns just the style names.
func ThemeNames() []string {
	themes := AvailableThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
