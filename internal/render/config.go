package render

import (
	"os"

	"github.com/diogo/agentchat/internal/config"
)

// EnvStyle overrides the configured markdown style.
const EnvStyle = "GLAMOUR_STYLE"

// OptionsFromConfig builds render options from the markdown section of
// the user configuration. GLAMOUR_STYLE wins over the file.
func OptionsFromConfig(md config.MarkdownConfig, width int) Options {
	opts := DefaultOptions().WithWidth(width)

	if md.Style != "" {
		opts.Style = md.Style
	}
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines

	if style := os.Getenv(EnvStyle); style != "" {
		opts.Style = style
	}

	return opts
}
