package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/event"
	"github.com/kadirpekel/crewcore/llms"
	"github.com/kadirpekel/crewcore/reasoning"
	"github.com/kadirpekel/crewcore/tools"
)

// retryBaseDelay anchors the exponential backoff on LLM call failures, the
// same math.Pow(2, attempt)*baseDelay shape as the teacher's
// pkg/httpclient.Client.calculateDelay.
const retryBaseDelay = 500 * time.Millisecond

// Executor runs the bounded reasoning loop from spec.md §4.4 for a single
// agent. One Executor instance is built per agent and reused for every task
// that agent runs; the scheduler
// (crew package) is responsible for serializing invocations on the same
// agent, per spec.md §5 ("exclusive access is enforced").
type Executor struct {
	id       Identity
	cfg      config.AgentConfig
	provider llms.Provider
	toolReg  *tools.Registry
	engine   *tools.Engine
	bus      *event.Bus

	delegates       map[string]*Executor
	delegationDepth int

	// agg, when set, receives every successful LLM call's usage, so a crew
	// can read a single running total across all its agents' executors
	// instead of re-deriving it from per-task sums, per spec.md §4.6
	// ("Usage aggregation").
	agg *llms.Aggregator
}

func NewExecutor(id Identity, cfg config.AgentConfig, provider llms.Provider, toolReg *tools.Registry, engine *tools.Engine, bus *event.Bus) *Executor {
	return &Executor{id: id, cfg: cfg, provider: provider, toolReg: toolReg, engine: engine, bus: bus}
}

// SetUsageAggregator wires a shared aggregator that receives every
// successful LLM call this executor makes.
func (e *Executor) SetUsageAggregator(agg *llms.Aggregator) {
	e.agg = agg
}

// SetDelegates wires the coworker pool used by the delegation tools. Called
// by the crew scheduler after all executors for a run have been built.
func (e *Executor) SetDelegates(delegates map[string]*Executor) {
	e.delegates = delegates
}

// Run executes the reasoning loop against prompt, returning the terminal
// result. taskKey scopes repetition detection (tools.Engine.Invoke) to this
// particular agent+task combination.
func (e *Executor) Run(ctx context.Context, taskKey, prompt string, stepCb reasoning.StepCallback) (reasoning.Result, error) {
	ctx, _ = e.bus.Emit(ctx, EventExecutionStarted, e, event.WithAgentID(e.id.Key()))
	defer e.bus.Emit(ctx, EventExecutionFinished, e, event.WithAgentID(e.id.Key()))

	native := e.provider.SupportsFunctionCalling() && !e.cfg.ForceTextReasoning
	defs := e.availableToolDefs()

	messages := []llms.Message{
		{Role: "system", Content: systemPrompt(e.id, native, defs)},
		{Role: "user", Content: prompt},
	}

	var usage llms.Usage
	var trace []reasoning.Step
	formatFailures := 0
	toolInvocations := 0

	emitStep := func(step reasoning.Step) {
		trace = append(trace, step)
		e.bus.Emit(ctx, EventExecutionStep, e, event.WithAgentID(e.id.Key()), event.WithPayload(StepPayload{Iteration: step.Iteration, ToolName: step.ToolName}))
		if stepCb != nil {
			stepCb(step)
		}
	}

	maxIter := e.cfg.MaxIter
	for iteration := 0; ; iteration++ {
		select {
		case <-ctx.Done():
			return reasoning.Result{Output: lastText(messages), Messages: messages, Usage: usage, State: reasoning.StateTimedOut, Iterations: iteration}, ctx.Err()
		default:
		}

		if iteration >= maxIter {
			final, finalUsage, err := e.forceFinalAnswer(ctx, messages)
			usage.Add(finalUsage)
			if err != nil {
				return reasoning.Result{Output: lastText(messages), Messages: messages, Usage: usage, State: terminalStateFor(err), Iterations: iteration}, err
			}
			return reasoning.Result{Output: final, Trace: trace, Messages: messages, Usage: usage, State: reasoning.StateFinal, Iterations: iteration}, nil
		}

		var toolDefsForCall []llms.ToolDefinition
		if native {
			toolDefsForCall = toLLMDefs(defs)
		}

		resp, err := e.callWithRetry(ctx, messages, toolDefsForCall)
		if err != nil {
			return reasoning.Result{Output: lastText(messages), Messages: messages, Usage: usage, State: terminalStateFor(err), Iterations: iteration}, err
		}
		usage.Add(resp.Usage)

		if native {
			done, output, err := e.handleNativeResponse(ctx, taskKey, &messages, resp, emitStep, iteration, &toolInvocations)
			if err != nil {
				return reasoning.Result{Output: lastText(messages), Messages: messages, Usage: usage, State: terminalStateFor(err), Iterations: iteration}, err
			}
			if done {
				return reasoning.Result{Output: output, Trace: trace, Messages: messages, Usage: usage, State: reasoning.StateFinal, Iterations: iteration + 1}, nil
			}
			continue
		}

		done, output, err := e.handleReActResponse(ctx, taskKey, &messages, resp.Text, &formatFailures, emitStep, iteration, &toolInvocations)
		if err != nil {
			return reasoning.Result{Output: lastText(messages), Messages: messages, Usage: usage, State: terminalStateFor(err), Iterations: iteration}, err
		}
		if done {
			return reasoning.Result{Output: output, Trace: trace, Messages: messages, Usage: usage, State: reasoning.StateFinal, Iterations: iteration + 1}, nil
		}
		if formatFailures >= e.cfg.MaxFormatFailures {
			return reasoning.Result{Output: resp.Text, Trace: trace, Messages: messages, Usage: usage, State: reasoning.StateFinal, Iterations: iteration + 1}, nil
		}
	}
}

// handleNativeResponse executes any tool_calls in resp, appending the
// assistant+tool messages, per spec.md §4.4 ("Native mode").
func (e *Executor) handleNativeResponse(ctx context.Context, taskKey string, messages *[]llms.Message, resp llms.Response, emitStep func(reasoning.Step), iteration int, toolInvocations *int) (done bool, output string, err error) {
	if len(resp.ToolCalls) == 0 {
		emitStep(reasoning.Step{Iteration: iteration, FinalAnswer: resp.Text, Timestamp: time.Now()})
		return true, resp.Text, nil
	}

	*messages = append(*messages, llms.Message{Role: "assistant", Content: resp.Text, ToolCalls: resp.ToolCalls})

	for _, tc := range resp.ToolCalls {
		result, callErr := e.dispatchTool(ctx, taskKey, tc.Name, tc.Arguments)
		observation := observationFor(result, callErr)
		*messages = append(*messages, llms.Message{Role: "tool", Content: observation, ToolCallID: tc.ID, Name: tc.Name})
		*toolInvocations++

		emitStep(reasoning.Step{Iteration: iteration, ToolName: tc.Name, ToolInput: tc.Arguments, Observation: observation, Timestamp: time.Now()})

		if callErr == nil && result.ResultAsAnswer {
			return true, fmt.Sprint(result.Output), nil
		}
	}
	return false, "", nil
}

// handleReActResponse parses text as a ReAct step and, on a recognised
// action, executes it; on Final Answer, terminates; on unparseable text,
// increments the format-failure counter and appends a reminder.
func (e *Executor) handleReActResponse(ctx context.Context, taskKey string, messages *[]llms.Message, text string, formatFailures *int, emitStep func(reasoning.Step), iteration int, toolInvocations *int) (done bool, output string, err error) {
	parsed, ok := reasoning.ParseReAct(text)
	if !ok {
		*formatFailures++
		*messages = append(*messages, llms.Message{Role: "assistant", Content: text})
		*messages = append(*messages, llms.Message{Role: "user", Content: formatReminder()})
		return false, "", nil
	}
	*formatFailures = 0

	if parsed.IsFinal {
		emitStep(reasoning.Step{Iteration: iteration, Thought: parsed.Thought, FinalAnswer: parsed.FinalAnswer, Timestamp: time.Now()})
		return true, parsed.FinalAnswer, nil
	}

	*messages = append(*messages, llms.Message{Role: "assistant", Content: text})

	args := reasoning.ResolveToolArgs(parsed.RawInput, e.firstSchemaField(parsed.ToolName))
	result, callErr := e.dispatchTool(ctx, taskKey, parsed.ToolName, args)
	observation := observationFor(result, callErr)
	*messages = append(*messages, llms.Message{Role: "user", Content: "Observation: " + observation})
	*toolInvocations++

	if *toolInvocations%e.cfg.RememberFormatAfterUsages == 0 {
		*messages = append(*messages, llms.Message{Role: "user", Content: formatReminder()})
	}

	emitStep(reasoning.Step{Iteration: iteration, Thought: parsed.Thought, ToolName: parsed.ToolName, ToolInput: args, Observation: observation, Timestamp: time.Now()})

	if callErr == nil && result.ResultAsAnswer {
		return true, fmt.Sprint(result.Output), nil
	}
	return false, "", nil
}

// dispatchTool routes a requested tool name either to the delegation
// intercept or to the shared tools.Engine.
func (e *Executor) dispatchTool(ctx context.Context, taskKey, name string, args map[string]any) (tools.Result, error) {
	if e.cfg.AllowDelegation && (name == ToolDelegateWork || name == ToolAskQuestion) {
		dt := &delegateTool{owner: e, ask: name == ToolAskQuestion}
		out, err := dt.Run(ctx, args)
		if err != nil {
			return tools.Result{ToolName: name, Success: false, Error: err.Error()}, err
		}
		return tools.Result{ToolName: name, Success: true, Output: out}, nil
	}
	return e.engine.Invoke(ctx, taskKey, name, args)
}

func observationFor(result tools.Result, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprint(result.Output)
}

func (e *Executor) availableToolDefs() []tools.Definition {
	var names map[string]bool
	if len(e.cfg.Tools) > 0 {
		names = make(map[string]bool, len(e.cfg.Tools))
		for _, n := range e.cfg.Tools {
			names[n] = true
		}
	}
	all := e.toolReg.Definitions()
	var out []tools.Definition
	for _, d := range all {
		if names == nil || names[d.Name] {
			out = append(out, d)
		}
	}
	if e.cfg.AllowDelegation && e.cfg.MaxDelegationDepth > e.delegationDepth {
		dw := &delegateTool{owner: e}
		aq := &delegateTool{owner: e, ask: true}
		out = append(out, tools.Definition{Name: dw.Name(), Description: dw.Description(), Schema: dw.Schema()})
		out = append(out, tools.Definition{Name: aq.Name(), Description: aq.Description(), Schema: aq.Schema()})
	}
	return out
}

func (e *Executor) firstSchemaField(toolName string) string {
	for _, d := range e.availableToolDefs() {
		if d.Name != toolName {
			continue
		}
		props, ok := d.Schema["properties"].(map[string]any)
		if !ok || len(props) == 0 {
			return ""
		}
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys[0]
	}
	return ""
}

func toLLMDefs(defs []tools.Definition) []llms.ToolDefinition {
	out := make([]llms.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = llms.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Schema}
	}
	return out
}

// terminalStateFor classifies a loop-ending error: context cancellation or
// deadline expiry (whether observed directly or surfaced through a retry's
// backoff wait, a tool call, or the forced-final-answer call) maps to
// StateTimedOut per spec.md §5 ("any state -> TimedOut when wall-clock
// exceeds task timeout"); anything else is a genuine LLM/tool failure.
func terminalStateFor(err error) reasoning.State {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return reasoning.StateTimedOut
	}
	return reasoning.StateFatalError
}

func lastText(messages []llms.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Content != "" {
			return messages[i].Content
		}
	}
	return ""
}

// callWithRetry invokes the LLM, retrying transient failures up to
// cfg.MaxRetryLimit times with exponential backoff, per spec.md §4.4
// ("Error handling") and §7 ("Recoverable LLM failure").
func (e *Executor) callWithRetry(ctx context.Context, messages []llms.Message, toolDefs []llms.ToolDefinition) (llms.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetryLimit; attempt++ {
		resp, err := e.provider.Call(ctx, messages, toolDefs, llms.CallOptions{})
		if err == nil {
			if e.agg != nil {
				e.agg.Add(resp.Usage)
			}
			return resp, nil
		}
		lastErr = err
		var llmErr *llms.Error
		if errors.As(err, &llmErr) && !llmErr.Retryable() {
			break
		}
		if attempt == e.cfg.MaxRetryLimit {
			break
		}
		delay := time.Duration(math.Pow(2, float64(attempt))) * retryBaseDelay
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return llms.Response{}, ctx.Err()
		}
	}
	return llms.Response{}, fmt.Errorf("llm call failed after retries: %w", lastErr)
}

// forceFinalAnswer implements spec.md §4.4 step 1: synthesize a final-
// answer instruction once max_iter is reached.
func (e *Executor) forceFinalAnswer(ctx context.Context, messages []llms.Message) (string, llms.Usage, error) {
	forced := append(append([]llms.Message(nil), messages...), llms.Message{
		Role:    "user",
		Content: "You have reached the iteration limit. Conclude now with a Final Answer based on the work done so far.",
	})
	resp, err := e.callWithRetry(ctx, forced, nil)
	if err != nil {
		return "", llms.Usage{}, err
	}
	return resp.Text, resp.Usage, nil
}

