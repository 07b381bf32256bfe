package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/agentchat/internal/errors"
)

// AgentResponse is the decoded payload of an agent turn
type AgentResponse struct {
	Response     string       `mapstructure:"-"`
	Next         NextStep     `mapstructure:"next"`
	Tool         string       `mapstructure:"tool"`
	ForceConfirm bool         `mapstructure:"force_confirm"`
	Args         gjson.Result `mapstructure:"-"` // kept as gjson to preserve key order
}

// agentFields are the scalar fields decoded through mapstructure
type agentFields struct {
	Next         string `mapstructure:"next"`
	Tool         string `mapstructure:"tool"`
	ForceConfirm bool   `mapstructure:"force_confirm"`
}

// DecodeAgentResponse decodes a raw agent payload.
// A JSON-encoded string is parsed first; a string that is not valid JSON
// is treated as the reply text itself.
func DecodeAgentResponse(raw string) AgentResponse {
	r := gjson.Parse(raw)

	if r.Type == gjson.String {
		s := r.String()
		inner := gjson.Parse(s)
		if !gjson.Valid(s) || !inner.IsObject() {
			return AgentResponse{Response: s}
		}
		r = inner
	}

	if !r.IsObject() {
		if r.Type == gjson.Null || !r.Exists() {
			return AgentResponse{}
		}
		return AgentResponse{Response: r.String()}
	}

	out := AgentResponse{
		Response: responseText(r.Get("response")),
		Args:     r.Get("args"),
	}

	var fields agentFields
	if err := decodeFields(r, &fields); err == nil {
		out.Next = NextStep(fields.Next)
		out.Tool = fields.Tool
		out.ForceConfirm = fields.ForceConfirm
	}

	return out
}

func decodeFields(r gjson.Result, dst *agentFields) error {
	var m map[string]any
	if err := json.Unmarshal([]byte(r.Raw), &m); err != nil {
		return apierrors.NewParseError(err.Error(), "response")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(m)
}

// responseText returns the text of a response field, which may itself be
// an object carrying a nested response.
func responseText(r gjson.Result) string {
	if r.IsObject() {
		return r.Get("response").String()
	}
	if r.Type == gjson.Null || !r.Exists() {
		return ""
	}
	return r.String()
}

// ToolName returns the tool name or UnknownTool
func (a AgentResponse) ToolName() string {
	if a.Tool == "" {
		return UnknownTool
	}
	return a.Tool
}

// RequiresConfirm reports whether a confirmation card should be shown.
// Only the last message of the conversation can ask for confirmation.
func (a AgentResponse) RequiresConfirm(isLast bool) bool {
	return a.ForceConfirm && a.Next == NextConfirm && isLast
}

// ChoseTool reports whether to show the "Agent chose tool" note instead
// of a confirmation card.
func (a AgentResponse) ChoseTool(isLast bool) bool {
	return !a.RequiresConfirm(isLast) && a.Tool != "" && a.Next == NextConfirm
}

// DisplayText returns the trimmed reply text, falling back to a prompt
// to confirm when the reply is empty and confirmation is required.
func (a AgentResponse) DisplayText(isLast bool) string {
	text := strings.TrimSpace(a.Response)
	if text != "" {
		return text
	}
	if a.RequiresConfirm(isLast) {
		return fmt.Sprintf("Agent is ready to run %q. Please confirm.", a.Tool)
	}
	return ""
}

// ArgCount returns the number of root argument keys
func (a AgentResponse) ArgCount() int {
	if !a.Args.IsObject() {
		return 0
	}
	n := 0
	a.Args.ForEach(func(_, _ gjson.Result) bool {
		n++
		return true
	})
	return n
}
