package render

import "strings"

// Markdown renders markdown content for terminal display.
// Renderers are pooled per option set; a TermRenderer is not safe for
// concurrent use.
func Markdown(content string, opts Options) (string, error) {
	renderer, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, renderer)

	out, err := renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// MarkdownOrPlain renders content as markdown and falls back to the raw
// text when rendering fails.
func MarkdownOrPlain(content string, opts Options) string {
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return out
}
