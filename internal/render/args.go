package render

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// CollapseAfter is the number of root arguments shown before the list
// collapses behind a toggle.
const CollapseAfter = 4

// Toggle labels of a collapsed argument list
const (
	ShowAllLabel  = "…show all"
	ShowLessLabel = "show less"
)

// NullValue stands in for a missing or null argument.
const NullValue = "-"

const indent = "  "

// ValueLines renders an argument value as indented lines. Scalars give a
// single line, arrays a numbered list, and objects a bulleted
// "Key: value" list.
func ValueLines(v gjson.Result) []string {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return []string{NullValue}
	case v.IsArray():
		var lines []string
		for i, item := range v.Array() {
			lines = append(lines, labeled(fmt.Sprintf("%d. ", i+1), item)...)
		}
		return lines
	case v.IsObject():
		var lines []string
		v.ForEach(func(key, value gjson.Result) bool {
			lines = append(lines, labeled("• "+CapitalizeKey(key.String())+": ", value)...)
			return true
		})
		return lines
	default:
		return []string{v.String()}
	}
}

// labeled prefixes a value with label. Composite values start on the
// next line, indented under the label.
func labeled(label string, v gjson.Result) []string {
	if !isComposite(v) {
		return []string{label + ValueLines(v)[0]}
	}
	children := ValueLines(v)
	lines := make([]string, 0, len(children)+1)
	lines = append(lines, strings.TrimRight(label, " "))
	for _, c := range children {
		lines = append(lines, indent+c)
	}
	return lines
}

func isComposite(v gjson.Result) bool {
	return v.IsArray() || v.IsObject()
}

// CapitalizeKey upper-cases the first letter of every space separated
// word of an argument key.
func CapitalizeKey(key string) string {
	words := strings.Split(key, " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ArgLines renders the root arguments of a tool call. When there are
// more than CollapseAfter keys and showAll is false only the first ones
// are rendered. toggle is the label of the collapse control, or empty.
func ArgLines(args gjson.Result, showAll bool) (lines []string, toggle string) {
	if !args.IsObject() {
		return nil, ""
	}

	var keys, values []gjson.Result
	args.ForEach(func(key, value gjson.Result) bool {
		keys = append(keys, key)
		values = append(values, value)
		return true
	})

	count := len(keys)
	collapse := count > CollapseAfter && !showAll
	if collapse {
		count = CollapseAfter
	}

	for i := 0; i < count; i++ {
		lines = append(lines, labeled(CapitalizeKey(keys[i].String())+": ", values[i])...)
	}

	switch {
	case collapse:
		toggle = ShowAllLabel
	case showAll && len(keys) > CollapseAfter:
		toggle = ShowLessLabel
	}
	return lines, toggle
}

// ConfirmCard is the inline prompt asking to run a tool
type ConfirmCard struct {
	Tool      string
	Args      gjson.Result
	Confirmed bool
	ShowAll   bool
}

// Heading returns the card title for its current state
func (c ConfirmCard) Heading() string {
	if c.Confirmed {
		return fmt.Sprintf("Running %s …", c.Tool)
	}
	return "Ready to run " + c.Tool
}

// Body returns the argument lines and toggle label. A confirmed card
// shows only its heading.
func (c ConfirmCard) Body() ([]string, string) {
	if c.Confirmed {
		return nil, ""
	}
	return ArgLines(c.Args, c.ShowAll)
}

// Collapsible reports whether the argument list has a toggle
func (c ConfirmCard) Collapsible() bool {
	_, toggle := c.Body()
	return toggle != ""
}

// ChoseToolText is the note shown when the agent picked a tool without
// asking for confirmation.
func ChoseToolText(tool string) string {
	return "Agent chose tool: " + tool
}
