package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/agentchat/internal/models"
)

type funcTool struct {
	name string
	run  func(args json.RawMessage) (json.RawMessage, error)
}

func (t funcTool) Name() string { return t.name }

func (t funcTool) Run(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
	return t.run(args)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	echo := funcTool{name: "Echo", run: func(args json.RawMessage) (json.RawMessage, error) { return args, nil }}

	require.NoError(t, r.Register(echo))
	assert.Error(t, r.Register(echo), "duplicate names are rejected")
	assert.Error(t, r.Register(funcTool{}), "empty names are rejected")
	require.NoError(t, r.Register(funcTool{name: "Alpha"}))

	assert.Equal(t, []string{"Alpha", "Echo"}, r.Names())

	_, err := r.Get("Missing")
	assert.ErrorIs(t, err, ErrToolNotFound)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "Missing", toolErr.Tool)
}

func TestExecutorMiddlewareOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(funcTool{name: "Echo", run: func(args json.RawMessage) (json.RawMessage, error) { return args, nil }}))

	var calls []string
	trace := func(label string) Middleware {
		return func(next ToolFunc) ToolFunc {
			return func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
				calls = append(calls, label+">")
				out, err := next(ctx, name, args)
				calls = append(calls, "<"+label)
				return out, err
			}
		}
	}

	e := NewExecutor(r, trace("outer"), trace("inner"))
	out, err := e.Execute(context.Background(), "Echo", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, calls)
}

func TestExecutorErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Register(funcTool{name: "Fail", run: func(json.RawMessage) (json.RawMessage, error) { return nil, boom }}))
	require.NoError(t, r.Register(funcTool{name: "Panic", run: func(json.RawMessage) (json.RawMessage, error) { panic("bad tool") }}))

	logger := slog.New(slog.DiscardHandler)
	e := NewExecutor(r, RecoveryMiddleware(logger), LoggingMiddleware(logger))

	_, err := e.Execute(context.Background(), "Fail", nil)
	assert.ErrorIs(t, err, boom)

	_, err = e.Execute(context.Background(), "Panic", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: bad tool")

	_, err = e.Execute(context.Background(), "Missing", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, "Fail", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToolsFromScript(t *testing.T) {
	script, err := ParseScript([]byte(`
starter_prompt: Go
steps:
  - response: Looking up events
    next: confirm
    tool: FindEvents
    result:
      events: [Vivid Sydney]
  - response: Nothing to search
    next: question
  - response: Searching again
    next: confirm
    tool: FindEvents
    result:
      events: [Sydney Festival]
`))
	require.NoError(t, err)

	r, err := ToolsFromScript(script)
	require.NoError(t, err)
	assert.Equal(t, []string{"FindEvents"}, r.Names())

	e := NewExecutor(r)
	for _, want := range []string{`{"events":["Vivid Sydney"]}`, `{"events":["Sydney Festival"]}`, `{}`} {
		out, err := e.Execute(context.Background(), "FindEvents", nil)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(out))
	}
}

func TestMetricsToolMiddleware(t *testing.T) {
	m := NewMetrics()
	r := NewRegistry()
	require.NoError(t, r.Register(funcTool{name: "Ok", run: func(json.RawMessage) (json.RawMessage, error) { return json.RawMessage(`{}`), nil }}))

	e := NewExecutor(r, m.ToolMiddleware())
	_, _ = e.Execute(context.Background(), "Ok", nil)
	_, _ = e.Execute(context.Background(), "Missing", nil)

	expected := `
# HELP agentchat_devserver_tool_runs_total Tool runs by tool and outcome
# TYPE agentchat_devserver_tool_runs_total counter
agentchat_devserver_tool_runs_total{outcome="error",tool="Missing"} 1
agentchat_devserver_tool_runs_total{outcome="ok",tool="Ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "agentchat_devserver_tool_runs_total"))
}

func TestAgentToolFailureResult(t *testing.T) {
	h := newHarness(t, testScript)
	h.agent.toolMiddleware = []Middleware{func(ToolFunc) ToolFunc {
		return func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("backend down")
		}
	}}
	h.warm(t)

	require.NoError(t, h.agent.Prompt("Sydney"))
	h.sched.flush()
	require.NoError(t, h.agent.Confirm())
	h.sched.flush()

	conv, _ := h.agent.History()
	require.Len(t, conv, 7)
	assert.JSONEq(t, `{"error":"backend down"}`, string(conv[5].Response))
}

func TestAgentToolRunsWithoutLock(t *testing.T) {
	h := newHarness(t, testScript)
	var during models.Conversation
	h.agent.toolMiddleware = []Middleware{func(next ToolFunc) ToolFunc {
		return func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
			conv, err := h.agent.History()
			require.NoError(t, err)
			during = conv
			return next(ctx, name, args)
		}
	}}
	h.warm(t)

	require.NoError(t, h.agent.Prompt("Sydney"))
	h.sched.flush()
	require.NoError(t, h.agent.Confirm())
	h.sched.flush()

	require.NotEmpty(t, during, "history should be readable while the tool runs")
	assert.Equal(t, ActorConfirmedToolRun, during[len(during)-1].Actor)

	conv, _ := h.agent.History()
	require.Len(t, conv, 7)
	assert.Equal(t, models.ActorToolResult, conv[5].Actor)
}
