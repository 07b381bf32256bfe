package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// ErrToolNotFound is returned when no tool is registered under a name.
var ErrToolNotFound = errors.New("tool not found")

// Tool is something the agent can run once the user confirms it
type Tool interface {
	Name() string
	Run(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// ToolFunc is the execution signature wrapped by middleware
type ToolFunc func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)

// Middleware wraps tool execution. The first middleware given to
// NewExecutor is the outermost.
type Middleware func(next ToolFunc) ToolFunc

// ToolError wraps a failure of a named tool
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Registry holds tools by name
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique and non-empty.
func (r *Registry) Register(tool Tool) error {
	if tool == nil || tool.Name() == "" {
		return errors.New("tool must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

// Get looks up a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, &ToolError{Tool: name, Err: ErrToolNotFound}
	}
	return tool, nil
}

// Names lists the registered tools in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Executor runs registered tools through a middleware chain
type Executor struct {
	registry *Registry
	run      ToolFunc
}

// NewExecutor creates an executor over registry
func NewExecutor(registry *Registry, middleware ...Middleware) *Executor {
	e := &Executor{registry: registry}

	run := e.execute
	for i := len(middleware) - 1; i >= 0; i-- {
		run = middleware[i](run)
	}
	e.run = run
	return e
}

// Execute runs the tool called name with args
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	return e.run(ctx, name, args)
}

func (e *Executor) execute(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ToolError{Tool: name, Err: err}
	}

	tool, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}

	result, err := tool.Run(ctx, args)
	if err != nil {
		return nil, &ToolError{Tool: name, Err: err}
	}
	return result, nil
}

// RecoveryMiddleware turns a panicking tool into a ToolError
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next ToolFunc) ToolFunc {
		return func(ctx context.Context, name string, args json.RawMessage) (result json.RawMessage, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("tool panicked", "tool", name, "panic", r, "stack", string(debug.Stack()))
					result, err = nil, &ToolError{Tool: name, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			return next(ctx, name, args)
		}
	}
}

// LoggingMiddleware logs every tool run with its duration
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ToolFunc) ToolFunc {
		return func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
			start := time.Now()
			logger.Debug("tool starting", "tool", name, "args", string(args))

			result, err := next(ctx, name, args)
			if err != nil {
				logger.Warn("tool failed", "tool", name, "elapsed", time.Since(start), "err", err)
				return nil, err
			}
			logger.Info("tool finished", "tool", name, "elapsed", time.Since(start))
			return result, nil
		}
	}
}

// scriptedTool answers with the results a script lists for it, in order
type scriptedTool struct {
	name    string
	mu      sync.Mutex
	results []json.RawMessage
}

func (t *scriptedTool) Name() string {
	return t.name
}

func (t *scriptedTool) Run(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.results) == 0 {
		return json.RawMessage(`{}`), nil
	}
	result := t.results[0]
	t.results = t.results[1:]
	return result, nil
}

// ToolsFromScript registers one scripted tool per tool name in script.
// A tool used by several steps returns their results in step order.
func ToolsFromScript(script *Script) (*Registry, error) {
	byName := make(map[string]*scriptedTool)
	var order []string

	for i, step := range script.Steps {
		if !step.NeedsTool() {
			continue
		}
		result, err := step.ResultJSON()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if result == nil {
			result = json.RawMessage(`{}`)
		}

		tool, ok := byName[step.Tool]
		if !ok {
			tool = &scriptedTool{name: step.Tool}
			byName[step.Tool] = tool
			order = append(order, step.Tool)
		}
		tool.results = append(tool.results, result)
	}

	registry := NewRegistry()
	for _, name := range order {
		if err := registry.Register(byName[name]); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
