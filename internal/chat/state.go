// Package chat holds the page state of the chat client and the rules
// that move it when history arrives, requests fail, or time passes.
package chat

import (
	"fmt"
	"strings"
	"time"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// Contexts reported in error banners
const (
	ContextFetching   = "fetching conversation"
	ContextSending    = "sending message"
	ContextConfirming = "confirming action"
	ContextStarting   = "starting new chat"
	ContextEnding     = "ending chat"
)

// RetryMessage is shown while the history endpoint answers 404.
const RetryMessage = "Error fetching conversation. Retrying..."

// Banner is the transient error shown above the transcript
type Banner struct {
	Visible bool
	Message string
	// ExpiresAt is zero for banners that stay until the next success.
	ExpiresAt time.Time
}

// Change reports what an ApplyHistory call modified
type Change struct {
	ConversationChanged bool
	LastChanged         bool
}

// State is the page state of the chat client
type State struct {
	Conversation models.Conversation
	// Last is the most recent user or agent turn.
	Last    *models.Turn
	Loading bool
	Done    bool
	Banner  Banner
	// Confirmed is set once the user confirmed the card on the last message.
	Confirmed bool
	// ShowAllArgs expands the argument list of the confirmation card.
	ShowAllArgs bool

	dismissAfter time.Duration
}

// NewState returns the initial page state: no conversation, chat ended.
func NewState(dismissAfter time.Duration) *State {
	if dismissAfter <= 0 {
		dismissAfter = 3 * time.Second
	}
	return &State{
		Conversation: models.Conversation{},
		Done:         true,
		dismissAfter: dismissAfter,
	}
}

// ApplyHistory folds a freshly fetched conversation into the state.
// The stored conversation is only replaced when it actually changed.
func (s *State) ApplyHistory(conv models.Conversation) Change {
	var change Change

	if !s.Conversation.Equal(conv) {
		s.Conversation = conv
		change.ConversationChanged = true
	}

	last, ok := conv.Last()
	if ok {
		s.Loading = last.Actor != models.ActorAgent
		s.Done = last.Agent().Next == models.NextDone
	} else {
		s.Loading = false
		s.Done = true
	}

	// Card state follows the last visible turn, so confirmation and
	// tool_result turns appended by the backend keep it confirmed.
	visible := conv.Visible()
	if len(visible) > 0 {
		shown := visible[len(visible)-1]
		if s.Last == nil || s.Last.Text() != shown.Text() || s.Last.Actor != shown.Actor {
			s.Last = &shown
			s.Confirmed = false
			s.ShowAllArgs = false
			change.LastChanged = true
		}
	} else {
		if s.Last != nil {
			change.LastChanged = true
		}
		s.Last = nil
		s.Confirmed = false
		s.ShowAllArgs = false
	}

	s.ClearBanner()
	return change
}

// Fail shows the banner for err raised while doing context.
// A 404 keeps the banner until the next success; anything else expires.
func (s *State) Fail(err error, context string, now time.Time) {
	notReady := apierrors.IsNotFound(err)

	message := RetryMessage
	if !notReady {
		message = fmt.Sprintf("Error %s. Please try again.", strings.ToLower(context))
	}

	if !(s.Banner.Visible && s.Banner.Message == message) {
		s.Banner = Banner{Visible: true, Message: message}
	}

	if notReady {
		s.Banner.ExpiresAt = time.Time{}
	} else {
		s.Banner.ExpiresAt = now.Add(s.dismissAfter)
	}
}

// ClearBanner hides the banner
func (s *State) ClearBanner() {
	s.Banner = Banner{}
}

// Tick dismisses an expired banner and reports whether it did.
func (s *State) Tick(now time.Time) bool {
	if !s.Banner.Visible || s.Banner.ExpiresAt.IsZero() {
		return false
	}
	if now.Before(s.Banner.ExpiresAt) {
		return false
	}
	s.ClearBanner()
	return true
}

// BeginRequest marks a user initiated request as in flight
func (s *State) BeginRequest() {
	s.Loading = true
	s.ClearBanner()
}

// FailRequest records a failed user initiated request
func (s *State) FailRequest(err error, context string, now time.Time) {
	s.Fail(err, context, now)
	s.Loading = false
}

// ConfirmSucceeded marks the confirmation card as confirmed
func (s *State) ConfirmSucceeded() {
	s.Confirmed = true
}

// StartSucceeded resets the transcript for a new workflow
func (s *State) StartSucceeded() {
	s.Conversation = models.Conversation{}
	s.Last = nil
	s.Confirmed = false
	s.ShowAllArgs = false
	s.Loading = false
}

// EndRequest clears the loading flag whatever the outcome
func (s *State) EndRequest() {
	s.Loading = false
}

// CanType reports whether the input accepts a message
func (s *State) CanType() bool {
	return !s.Loading && !s.Done
}

// CanStartNew reports whether a new chat may be started
func (s *State) CanStartNew() bool {
	return s.Done
}

// PendingConfirmation returns the agent payload awaiting confirmation, if any
func (s *State) PendingConfirmation() (models.AgentResponse, bool) {
	visible := s.Conversation.Visible()
	if len(visible) == 0 {
		return models.AgentResponse{}, false
	}
	last := visible[len(visible)-1]
	if !last.IsAgent() {
		return models.AgentResponse{}, false
	}
	agent := last.Agent()
	if !agent.RequiresConfirm(true) || s.Confirmed {
		return models.AgentResponse{}, false
	}
	return agent, true
}

// LastAgentText returns the text of the most recent agent reply
func (s *State) LastAgentText() string {
	visible := s.Conversation.Visible()
	for i := len(visible) - 1; i >= 0; i-- {
		if visible[i].IsAgent() {
			return visible[i].Agent().DisplayText(i == len(visible)-1)
		}
	}
	return ""
}
