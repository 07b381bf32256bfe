package models

import (
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/agentchat/internal/errors"
)

// GJSON paths for the history payload
const (
	PathMessages = "messages"
	PathActor    = "actor"
	PathResponse = "response"
)

// ParseHistory parses the body of the history endpoint.
// The backend answers a bare list when the workflow has failed; that, and
// a missing "messages" key, both mean an empty conversation.
func ParseHistory(body []byte) (Conversation, error) {
	if len(body) == 0 {
		return Conversation{}, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("history is not valid JSON", "")
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Conversation{}, nil
	}

	messages := root.Get(PathMessages)
	if !messages.Exists() || messages.Type == gjson.Null {
		return Conversation{}, nil
	}
	if !messages.IsArray() {
		return nil, apierrors.NewParseError("expected an array", PathMessages)
	}

	conv := make(Conversation, 0, len(messages.Array()))
	var parseErr error
	messages.ForEach(func(_, msg gjson.Result) bool {
		if !msg.IsObject() {
			parseErr = apierrors.NewParseError("expected an object", PathMessages)
			return false
		}
		raw := msg.Get(PathResponse).Raw
		if raw == "" {
			raw = "null"
		}
		conv = append(conv, Turn{
			Actor:    msg.Get(PathActor).String(),
			Response: []byte(raw),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return conv, nil
}
