package models

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Turn is one conversation entry as returned by the history endpoint
type Turn struct {
	Actor string `json:"actor"`
	// Response is kept raw: a plain string, a JSON-encoded string, or an object.
	Response json.RawMessage `json:"response"`
}

// NewTextTurn builds a turn whose response is a plain string.
func NewTextTurn(actor, text string) Turn {
	raw, _ := json.Marshal(text)
	return Turn{Actor: actor, Response: raw}
}

// IsVisible reports whether the turn belongs in the transcript
func (t Turn) IsVisible() bool {
	return t.Actor == ActorUser || t.Actor == ActorAgent
}

// IsAgent reports whether the turn was produced by the agent
func (t Turn) IsAgent() bool {
	return t.Actor == ActorAgent
}

// Agent decodes the response as an agent payload
func (t Turn) Agent() AgentResponse {
	return DecodeAgentResponse(string(t.Response))
}

// Text returns the human readable text of the turn
func (t Turn) Text() string {
	if t.IsAgent() {
		return t.Agent().Response
	}
	r := gjson.ParseBytes(t.Response)
	switch {
	case r.Type == gjson.String:
		return r.String()
	case r.IsObject():
		return responseText(r.Get("response"))
	case r.Type == gjson.Null || !r.Exists():
		return ""
	default:
		return r.Raw
	}
}

// Conversation is the ordered list of turns for the current workflow
type Conversation []Turn

// Equal reports structural equality of two conversations. Responses are
// compared as JSON, so whitespace between tokens does not matter.
func (c Conversation) Equal(other Conversation) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i].Actor != other[i].Actor || !sameJSON(c[i].Response, other[i].Response) {
			return false
		}
	}
	return true
}

func sameJSON(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	return bytes.Equal(pretty.Ugly(a), pretty.Ugly(b))
}

// Last returns the final turn, if any
func (c Conversation) Last() (Turn, bool) {
	if len(c) == 0 {
		return Turn{}, false
	}
	return c[len(c)-1], true
}

// Visible returns only the user and agent turns, in order
func (c Conversation) Visible() []Turn {
	visible := make([]Turn, 0, len(c))
	for _, t := range c {
		if t.IsVisible() {
			visible = append(visible, t)
		}
	}
	return visible
}
