// Package models contains data types and constants for the agent backend.
package models

// Endpoint paths, relative to the configured base URL
const (
	EndpointHistory       = "/get-conversation-history"
	EndpointSendPrompt    = "/send-prompt"
	EndpointConfirm       = "/confirm"
	EndpointStartWorkflow = "/start-workflow"
	EndpointEndChat       = "/end-chat"
)

// Actors that appear in a conversation
const (
	ActorUser  = "user"
	ActorAgent = "agent"
	// ActorToolResult turns are produced by the backend after a tool runs.
	// They are never shown in the transcript.
	ActorToolResult = "tool_result"
)

// NextStep is the directive the agent attaches to each reply
type NextStep string

const (
	NextConfirm     NextStep = "confirm"
	NextQuestion    NextStep = "question"
	NextPickNewGoal NextStep = "pick-new-goal"
	NextDone        NextStep = "done"
)

// HiddenPrefix marks prompts injected by the backend (e.g. the goal's
// starter prompt). Text starting with it is not rendered.
const HiddenPrefix = "###"

// UnknownTool is shown when the agent picks a tool without naming it.
const UnknownTool = "Unknown"

// DefaultHeaders returns the headers sent with every backend request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
		"User-Agent":   "agentchat",
	}
}
