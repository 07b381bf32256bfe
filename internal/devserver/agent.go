package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/diogo/agentchat/internal/models"
)

// ActorConfirmedToolRun marks the turn recorded when the user confirms.
// Clients do not render it.
const ActorConfirmedToolRun = "user_confirmed_tool_run"

var (
	// ErrNoRun is returned when no workflow has been started.
	ErrNoRun = errors.New("workflow not found")
	// ErrWarmingUp is returned while a started workflow has no worker yet.
	ErrWarmingUp = errors.New("workflow worker unavailable or not found")
)

// toolTimeout bounds a single tool run
const toolTimeout = 5 * time.Second

// Scheduler runs f after d
type Scheduler func(d time.Duration, f func())

// Agent is an in-memory stand-in for the agent workflow. It replays a
// Script: one step per user prompt, confirmation before each tool run.
type Agent struct {
	mu     sync.Mutex
	script *Script

	runID     string
	startedAt time.Time
	turns     models.Conversation
	step      int
	pending   *Step
	ended     bool
	tools     *Executor

	toolMiddleware []Middleware

	now      func() time.Time
	schedule Scheduler
	logger   *slog.Logger
	onTurn   func(actor string)
}

// AgentOption configures an Agent
type AgentOption func(*Agent)

// WithClock sets the time source
func WithClock(now func() time.Time) AgentOption {
	return func(a *Agent) {
		a.now = now
	}
}

// WithScheduler replaces time.AfterFunc for delayed replies
func WithScheduler(s Scheduler) AgentOption {
	return func(a *Agent) {
		a.schedule = s
	}
}

// WithAgentLogger sets the logger
func WithAgentLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithTurnHook registers a callback run for every appended turn
func WithTurnHook(f func(actor string)) AgentOption {
	return func(a *Agent) {
		a.onTurn = f
	}
}

// WithToolMiddleware wraps every tool run, outermost first
func WithToolMiddleware(mw ...Middleware) AgentOption {
	return func(a *Agent) {
		a.toolMiddleware = append(a.toolMiddleware, mw...)
	}
}

// NewAgent creates an agent replaying script
func NewAgent(script *Script, opts ...AgentOption) *Agent {
	a := &Agent{
		script: script,
		now:    time.Now,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunID returns the id of the current run, or "" before the first start
func (a *Agent) RunID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runID
}

// Start begins a new run. Any previous run is discarded. The starter
// prompt is queued as a hidden user turn once the warmup has passed.
func (a *Agent) Start() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.runID = uuid.NewString()
	a.startedAt = a.now()
	a.turns = models.Conversation{}
	a.step = 0
	a.pending = nil
	a.ended = false

	registry, err := ToolsFromScript(a.script)
	if err != nil {
		a.logger.Warn("script tools unavailable", "err", err)
		registry = NewRegistry()
	}
	a.tools = NewExecutor(registry, append([]Middleware{RecoveryMiddleware(a.logger)}, a.toolMiddleware...)...)

	runID := a.runID
	a.logger.Info("workflow started", "run_id", runID, "goal", a.script.Goal)

	a.later(runID, a.script.Warmup, func() {
		a.appendText(models.ActorUser, models.HiddenPrefix+" "+a.script.StarterPrompt)
		a.later(runID, a.script.ReplyDelay, func() {
			a.appendAgent(models.NextQuestion, a.script.Greeting)
		})
	})
	return runID
}

// History returns a copy of the conversation so far
func (a *Agent) History() (models.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.runID == "" {
		return nil, ErrNoRun
	}
	if a.now().Before(a.startedAt.Add(a.script.Warmup)) {
		return nil, ErrWarmingUp
	}
	out := make(models.Conversation, len(a.turns))
	copy(out, a.turns)
	return out, nil
}

// Prompt records a user prompt and schedules the next scripted reply.
// Prompts sent after the chat ended are dropped.
func (a *Agent) Prompt(text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.runID == "" {
		return ErrNoRun
	}
	if a.ended {
		a.logger.Info("prompt dropped, chat closed", "run_id", a.runID)
		return nil
	}

	a.appendText(models.ActorUser, text)

	step := a.nextStep()
	runID := a.runID
	a.later(runID, a.script.ReplyDelay, func() {
		a.reply(step)
	})
	return nil
}

// Confirm runs the tool awaiting confirmation, if any
func (a *Agent) Confirm() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.runID == "" {
		return ErrNoRun
	}
	if a.pending == nil {
		a.logger.Debug("confirm ignored, nothing pending", "run_id", a.runID)
		return nil
	}
	a.runTool(*a.pending)
	return nil
}

// End closes the chat
func (a *Agent) End() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.runID == "" {
		return ErrNoRun
	}
	a.ended = true
	a.pending = nil
	a.logger.Info("chat ended", "run_id", a.runID)
	return nil
}

// Ended reports whether the current run is closed
func (a *Agent) Ended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ended
}

// nextStep pops the next scripted step. When the script runs out the
// agent says goodbye.
func (a *Agent) nextStep() Step {
	if a.step >= len(a.script.Steps) {
		return Step{Response: a.script.Farewell, Next: string(models.NextDone)}
	}
	step := a.script.Steps[a.step]
	a.step++
	return step
}

// reply appends the agent turn for step. Must be called with mu held.
func (a *Agent) reply(step Step) {
	if a.ended {
		return
	}

	var args json.RawMessage
	if step.NeedsTool() {
		args, _ = step.ArgsJSON()
	}
	a.appendAgentTool(models.NextStep(step.Next), step.Response, step.Tool, args)

	switch {
	case step.NeedsTool():
		a.pending = &step
		if !a.script.ForceConfirm {
			a.runTool(step)
		}
	case step.Next == string(models.NextDone):
		a.ended = true
	}
}

// runTool records the confirmation, then schedules the tool run and the
// followup reply. Must be called with mu held.
func (a *Agent) runTool(step Step) {
	a.pending = nil

	last, ok := a.turns.Last()
	if ok && last.IsAgent() {
		payload := append([]byte(nil), last.Response...)
		confirmed, err := sjson.SetBytes(payload, "next", ActorConfirmedToolRun)
		if err == nil {
			a.append(models.Turn{Actor: ActorConfirmedToolRun, Response: confirmed})
		}
	}

	runID, tools := a.runID, a.tools
	a.schedule(a.script.ReplyDelay, func() {
		a.mu.Lock()
		current := a.runID == runID
		a.mu.Unlock()
		if !current {
			return
		}

		result := runScriptedTool(tools, step)

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.runID != runID {
			return
		}
		a.append(models.Turn{Actor: models.ActorToolResult, Response: result})

		a.later(runID, a.script.ReplyDelay, func() {
			next := step.FollowupNext
			if next == "" {
				next = string(models.NextQuestion)
			}
			a.reply(Step{Response: step.Followup, Next: next})
		})
	})
}

// runScriptedTool runs the tool of step. It runs without mu held.
// A failure becomes an {"error": ...} result.
func runScriptedTool(tools *Executor, step Step) json.RawMessage {
	args, _ := step.ArgsJSON()
	ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
	defer cancel()

	result, err := tools.Execute(ctx, step.Tool, args)
	if err != nil {
		result, _ = sjson.SetBytes([]byte(`{}`), "error", err.Error())
	}
	return result
}

// later runs f after d with mu held, unless the run was replaced.
func (a *Agent) later(runID string, d time.Duration, f func()) {
	a.schedule(d, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.runID != runID {
			return
		}
		f()
	})
}

func (a *Agent) appendText(actor, text string) {
	a.append(models.NewTextTurn(actor, text))
}

func (a *Agent) appendAgent(next models.NextStep, text string) {
	a.appendAgentTool(next, text, "", nil)
}

// appendAgentTool builds the agent payload the way the workflow stores
// it: response, next, tool, args, plus force_confirm.
func (a *Agent) appendAgentTool(next models.NextStep, text, tool string, args json.RawMessage) {
	payload := []byte(`{}`)
	payload, _ = sjson.SetBytes(payload, "response", text)
	payload, _ = sjson.SetBytes(payload, "next", string(next))
	if tool != "" {
		payload, _ = sjson.SetBytes(payload, "tool", tool)
	}
	if args != nil {
		payload, _ = sjson.SetRawBytes(payload, "args", args)
	}
	payload, _ = sjson.SetBytes(payload, "force_confirm", a.script.ForceConfirm)

	a.append(models.Turn{Actor: models.ActorAgent, Response: payload})
}

func (a *Agent) append(turn models.Turn) {
	a.turns = append(a.turns, turn)
	a.logger.Debug("turn added", "run_id", a.runID, "actor", turn.Actor, "turns", len(a.turns))
	if a.onTurn != nil {
		a.onTurn(turn.Actor)
	}
}

// String describes the agent state for logs
func (a *Agent) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("run=%s turns=%d step=%d ended=%t", a.runID, len(a.turns), a.step, a.ended)
}
