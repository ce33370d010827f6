package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kadirpekel/crewcore/event"
)

// lastCall remembers a single (tool, args) pair for repetition detection.
type lastCall struct {
	toolName string
	key      string // CacheKey-shaped, used purely for equality comparison
}

// Engine drives the parse -> select -> validate -> execute -> cache -> emit
// pipeline from spec.md §4.2, plus repetition detection and usage caps.
// One Engine instance is shared across a crew run (it owns the shared
// Cache); repetition state is tracked per agent-task key so concurrent
// tasks don't interfere with each other's loop-breaking.
type Engine struct {
	registry *Registry
	cache    *Cache
	bus      *event.Bus

	mu          sync.Mutex
	usageCounts map[string]int // tool name -> invocation count, crew-run scoped
	lastCalls   map[string]lastCall
}

func NewEngine(registry *Registry, bus *event.Bus) *Engine {
	return &Engine{
		registry:    registry,
		cache:       NewCache(),
		bus:         bus,
		usageCounts: make(map[string]int),
		lastCalls:   make(map[string]lastCall),
	}
}

// Invoke runs the full pipeline for a single requested tool call.
// agentTaskKey scopes repetition detection to "the current agent task" per
// spec.md §4.2; pass a stable identifier such as agentKey+"|"+taskKey.
func (e *Engine) Invoke(ctx context.Context, agentTaskKey, requestedName string, rawArgs map[string]any) (Result, error) {
	ctx, _ = e.bus.Emit(ctx, EventUsageStarted, e, event.WithPayload(UsageStartedPayload{ToolName: requestedName, Args: rawArgs}))

	tool, err := e.registry.Select(requestedName)
	if err != nil {
		e.emitError(ctx, requestedName, err)
		return Result{ToolName: requestedName, Success: false, Error: err.Error()}, err
	}
	name := tool.Name()

	args := CleanArguments(rawArgs)
	key := CacheKey(name, args)

	if rep := e.checkRepetition(agentTaskKey, name, key); rep {
		obs := fmt.Sprintf("you just tried calling %q with these exact arguments; try a different approach", name)
		return Result{ToolName: name, Success: true, Output: obs}, nil
	}
	e.recordLastCall(agentTaskKey, name, key)

	if cap := tool.MaxUsageCount(); cap > 0 {
		e.mu.Lock()
		count := e.usageCounts[name]
		e.mu.Unlock()
		if count >= cap {
			err := &Error{Kind: ErrLimit, ToolName: name, Message: fmt.Sprintf("usage cap %d reached", cap)}
			e.emitError(ctx, name, err)
			return Result{ToolName: name, Success: false, Error: err.Error()}, err
		}
	}

	if err := ValidateArgs(name, tool.Schema(), args); err != nil {
		e.emitError(ctx, name, err)
		return Result{ToolName: name, Success: false, Error: err.Error()}, err
	}

	if cached, ok := e.cache.Get(key); ok {
		e.bus.Emit(ctx, EventUsageFinished, e, event.WithPayload(UsageFinishedPayload{ToolName: name, Cached: true}))
		return Result{ToolName: name, Success: true, Output: cached, ResultAsAnswer: tool.ResultAsAnswer()}, nil
	}

	start := time.Now()
	output, runErr := tool.Run(ctx, args)
	duration := time.Since(start)

	e.mu.Lock()
	e.usageCounts[name]++
	e.mu.Unlock()

	if runErr != nil {
		wrapped := &Error{Kind: ErrExecution, ToolName: name, Message: "tool body raised", Err: runErr}
		e.emitError(ctx, name, wrapped)
		return Result{ToolName: name, Success: false, Error: wrapped.Error(), ExecutionTime: duration}, wrapped
	}

	if tool.ShouldCache(args, output) {
		e.cache.Set(key, output)
	}

	e.bus.Emit(ctx, EventUsageFinished, e, event.WithPayload(UsageFinishedPayload{ToolName: name, Duration: int64(duration), Cached: false}))

	return Result{
		ToolName:       name,
		Success:        true,
		Output:         output,
		ExecutionTime:  duration,
		ResultAsAnswer: tool.ResultAsAnswer(),
	}, nil
}

func (e *Engine) checkRepetition(agentTaskKey, toolName, key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastCalls[agentTaskKey]
	return ok && last.toolName == toolName && last.key == key
}

func (e *Engine) recordLastCall(agentTaskKey, toolName, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastCalls[agentTaskKey] = lastCall{toolName: toolName, key: key}
}

func (e *Engine) emitError(ctx context.Context, toolName string, err error) {
	kind := ErrExecution
	if te, ok := err.(*Error); ok {
		kind = te.Kind
	}
	e.bus.Emit(ctx, EventUsageError, e, event.WithPayload(UsageErrorPayload{ToolName: toolName, Kind: kind, Message: err.Error()}))
}

// InvocationCount returns the crew-run-scoped invocation count for name,
// satisfying the testable invariant "invocation_count <= max_usage_count".
func (e *Engine) InvocationCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usageCounts[name]
}
