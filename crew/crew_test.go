package crew

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kadirpekel/crewcore/agent"
	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/event"
	"github.com/kadirpekel/crewcore/llms"
	"github.com/kadirpekel/crewcore/task"
	"github.com/kadirpekel/crewcore/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns queued responses in order, one per Call.
type scriptedProvider struct {
	responses []llms.Response
	native    bool
}

func (p *scriptedProvider) Call(ctx context.Context, messages []llms.Message, toolDefs []llms.ToolDefinition, opts llms.CallOptions) (llms.Response, error) {
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}
func (p *scriptedProvider) ACall(ctx context.Context, messages []llms.Message, toolDefs []llms.ToolDefinition, opts llms.CallOptions) <-chan llms.AsyncResult {
	ch := make(chan llms.AsyncResult, 1)
	resp, err := p.Call(ctx, messages, toolDefs, opts)
	ch <- llms.AsyncResult{Response: resp, Err: err}
	close(ch)
	return ch
}
func (p *scriptedProvider) SupportsFunctionCalling() bool { return p.native }
func (p *scriptedProvider) SupportsStopWords() bool       { return false }
func (p *scriptedProvider) SupportsMultimodal() bool      { return false }
func (p *scriptedProvider) GetContextWindowSize() int     { return 8192 }
func (p *scriptedProvider) Name() string                  { return "scripted" }

func newHandle(t *testing.T, name string, cfg config.AgentConfig, provider llms.Provider, bus *event.Bus, reg *tools.Registry) AgentHandle {
	t.Helper()
	cfg.SetDefaults()
	engine := tools.NewEngine(reg, bus)
	id := agent.NewIdentity(cfg)
	exec := agent.NewExecutor(id, cfg, provider, reg, engine, bus)
	return AgentHandle{Name: name, Cfg: cfg, Executor: exec}
}

func newTestBus() *event.Bus {
	bus := event.New(nil)
	RegisterScopes(bus)
	agent.RegisterScopes(bus)
	task.RegisterScopes(bus)
	tools.RegisterScopes(bus)
	return bus
}

// S1 end-to-end: a single sequential task completes with a direct final answer.
func TestCrew_Kickoff_SequentialSingleTask(t *testing.T) {
	bus := newTestBus()
	reg := tools.NewRegistry(config.ToolConfigs{})

	writer := newHandle(t, "writer", config.AgentConfig{Role: "writer", Goal: "write things"}, &scriptedProvider{
		responses: []llms.Response{{Text: "Final Answer: a haiku about rust"}},
	}, bus, reg)

	tsk := task.New(config.TaskConfig{Name: "haiku", Description: "Write a haiku", ExpectedOutput: "a haiku", Agent: "writer"})

	c := New(config.CrewConfig{Process: config.ProcessSequential}, []*task.Task{tsk},
		map[string]AgentHandle{"writer": writer}, nil, bus, hclog.NewNullLogger())

	out, err := c.Kickoff(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "a haiku about rust", out.Raw)
	require.Len(t, out.TaskOutputs, 1)
	assert.Equal(t, "writer", out.TaskOutputs[0].Agent)
}

// Context propagation: a second task's prompt context includes the
// first task's output when task.context isn't explicitly restricted.
func TestCrew_Kickoff_SequentialContextPropagation(t *testing.T) {
	bus := newTestBus()
	reg := tools.NewRegistry(config.ToolConfigs{})

	researcher := newHandle(t, "researcher", config.AgentConfig{Role: "researcher", Goal: "research"}, &scriptedProvider{
		responses: []llms.Response{{Text: "Final Answer: rust is a systems language"}},
	}, bus, reg)
	writer := newHandle(t, "writer", config.AgentConfig{Role: "writer", Goal: "write"}, &scriptedProvider{
		responses: []llms.Response{{Text: "Final Answer: summary written"}},
	}, bus, reg)

	t1 := task.New(config.TaskConfig{Name: "research", Description: "Research rust", ExpectedOutput: "facts", Agent: "researcher"})
	t2 := task.New(config.TaskConfig{Name: "write", Description: "Write about it", ExpectedOutput: "summary", Agent: "writer"})

	c := New(config.CrewConfig{Process: config.ProcessSequential}, []*task.Task{t1, t2},
		map[string]AgentHandle{"researcher": researcher, "writer": writer}, nil, bus, hclog.NewNullLogger())

	out, err := c.Kickoff(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "summary written", out.Raw)
	require.Len(t, out.TaskOutputs, 2)
	require.GreaterOrEqual(t, len(out.TaskOutputs[1].Messages), 2)
	assert.Contains(t, out.TaskOutputs[1].Messages[1].Content, "rust is a systems language")
}

// S4 from spec.md §8: hierarchical process delegates to a worker via the
// synthetic delegation tool; the manager's final answer is the crew output
// and the worker's usage is summed into the crew total.
func TestCrew_Kickoff_HierarchicalDelegation(t *testing.T) {
	bus := newTestBus()
	reg := tools.NewRegistry(config.ToolConfigs{})

	writerProvider := &scriptedProvider{responses: []llms.Response{{Text: "Final Answer: roses are red, rust is fast, code compiles true"}}}
	writer := newHandle(t, "writer", config.AgentConfig{Role: "writer", Goal: "write haikus"}, writerProvider, bus, reg)

	managerProvider := &scriptedProvider{responses: []llms.Response{
		{Text: `Thought: delegate it.` + "\n" + `Action: delegate_work_to_coworker` + "\n" + `Action Input: {"coworker": "writer", "task": "Write a haiku about rust"}`},
		{Text: "Final Answer: roses are red, rust is fast, code compiles true"},
	}}
	managerCfg := config.AgentConfig{Role: "manager", Goal: "coordinate", AllowDelegation: true}
	managerCfg.SetDefaults()
	managerEngine := tools.NewEngine(reg, bus)
	managerID := agent.NewIdentity(managerCfg)
	managerExec := agent.NewExecutor(managerID, managerCfg, managerProvider, reg, managerEngine, bus)
	manager := &AgentHandle{Name: "manager", Cfg: managerCfg, Executor: managerExec}

	tsk := task.New(config.TaskConfig{Name: "haiku", Description: "Write a haiku about rust", ExpectedOutput: "a haiku"})

	c := New(config.CrewConfig{Process: config.ProcessHierarchical, ManagerAgent: "manager"}, []*task.Task{tsk},
		map[string]AgentHandle{"writer": writer}, manager, bus, hclog.NewNullLogger())

	out, err := c.Kickoff(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "roses are red, rust is fast, code compiles true", out.Raw)
	// Usage aggregation: both the manager's and the delegated writer's LLM
	// calls are summed into the crew's running total.
	assert.Equal(t, 3, out.Usage.SuccessfulRequests)
}

// Invariant 4 from spec.md §8: sum(task_outputs.usage) == crew_output.usage.
func TestCrew_Kickoff_UsageAggregationAcrossTasks(t *testing.T) {
	bus := newTestBus()
	reg := tools.NewRegistry(config.ToolConfigs{})

	a1 := newHandle(t, "a1", config.AgentConfig{Role: "a1", Goal: "g"}, &scriptedProvider{
		responses: []llms.Response{{Text: "Final Answer: out1", Usage: llms.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}},
	}, bus, reg)
	a2 := newHandle(t, "a2", config.AgentConfig{Role: "a2", Goal: "g"}, &scriptedProvider{
		responses: []llms.Response{{Text: "Final Answer: out2", Usage: llms.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}}},
	}, bus, reg)

	t1 := task.New(config.TaskConfig{Name: "t1", Description: "d1", ExpectedOutput: "e1", Agent: "a1"})
	t2 := task.New(config.TaskConfig{Name: "t2", Description: "d2", ExpectedOutput: "e2", Agent: "a2"})

	c := New(config.CrewConfig{Process: config.ProcessSequential}, []*task.Task{t1, t2},
		map[string]AgentHandle{"a1": a1, "a2": a2}, nil, bus, hclog.NewNullLogger())

	out, err := c.Kickoff(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 20, out.Usage.TotalTokens)
}

func TestCrew_Kickoff_CallbacksFire(t *testing.T) {
	bus := newTestBus()
	reg := tools.NewRegistry(config.ToolConfigs{})

	writer := newHandle(t, "writer", config.AgentConfig{Role: "writer", Goal: "write"}, &scriptedProvider{
		responses: []llms.Response{{Text: "Final Answer: done"}},
	}, bus, reg)

	tsk := task.New(config.TaskConfig{Name: "t", Description: "d", ExpectedOutput: "e", Agent: "writer"})

	var beforeCalled, afterCalled, taskCalled bool
	callbacks := Callbacks{
		BeforeKickoff: []BeforeKickoff{func(inputs map[string]string) map[string]string {
			beforeCalled = true
			return inputs
		}},
		AfterKickoff: []AfterKickoff{func(output CrewOutput) CrewOutput {
			afterCalled = true
			return output
		}},
		TaskCallback: []TaskCallback{func(out task.Output) {
			taskCalled = true
		}},
	}

	c := New(config.CrewConfig{Process: config.ProcessSequential}, []*task.Task{tsk},
		map[string]AgentHandle{"writer": writer}, nil, bus, hclog.NewNullLogger(), WithCallbacks(callbacks))

	_, err := c.Kickoff(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, beforeCalled)
	assert.True(t, afterCalled)
	assert.True(t, taskCalled)
}

func TestCrew_Kickoff_TaskFailureReturnsPartialOutput(t *testing.T) {
	bus := newTestBus()
	reg := tools.NewRegistry(config.ToolConfigs{})

	good := newHandle(t, "good", config.AgentConfig{Role: "good", Goal: "g"}, &scriptedProvider{
		responses: []llms.Response{{Text: "Final Answer: ok"}},
	}, bus, reg)
	bad := newHandle(t, "bad", config.AgentConfig{Role: "bad", Goal: "g"}, &failingProvider{}, bus, reg)

	t1 := task.New(config.TaskConfig{Name: "t1", Description: "d1", ExpectedOutput: "e1", Agent: "good"})
	t2 := task.New(config.TaskConfig{Name: "t2", Description: "d2", ExpectedOutput: "e2", Agent: "bad"})

	c := New(config.CrewConfig{Process: config.ProcessSequential}, []*task.Task{t1, t2},
		map[string]AgentHandle{"good": good, "bad": bad}, nil, bus, hclog.NewNullLogger())

	out, err := c.Kickoff(context.Background(), nil)
	require.Error(t, err)
	require.Len(t, out.TaskOutputs, 1, "the first task's output is preserved in the partial CrewOutput")
}

type failingProvider struct{}

func (p *failingProvider) Call(ctx context.Context, messages []llms.Message, toolDefs []llms.ToolDefinition, opts llms.CallOptions) (llms.Response, error) {
	return llms.Response{}, &llms.Error{Provider: "failing", Kind: llms.ErrPermanent, Message: "boom"}
}
func (p *failingProvider) ACall(ctx context.Context, messages []llms.Message, toolDefs []llms.ToolDefinition, opts llms.CallOptions) <-chan llms.AsyncResult {
	ch := make(chan llms.AsyncResult, 1)
	ch <- llms.AsyncResult{Err: &llms.Error{Provider: "failing", Kind: llms.ErrPermanent, Message: "boom"}}
	close(ch)
	return ch
}
func (p *failingProvider) SupportsFunctionCalling() bool { return false }
func (p *failingProvider) SupportsStopWords() bool       { return false }
func (p *failingProvider) SupportsMultimodal() bool      { return false }
func (p *failingProvider) GetContextWindowSize() int     { return 8192 }
func (p *failingProvider) Name() string                  { return "failing" }

// Rate limit boundary from spec.md §8: after max_rpm calls in the window,
// the next call waits; a short window lets the test observe the wait.
func TestRateLimiter_BlocksAfterMaxRPMThenProceeds(t *testing.T) {
	limiter := NewRateLimiter()
	ctx := context.Background()
	window := 100 * time.Millisecond

	require.NoError(t, limiter.Wait(ctx, "agent", 1, window))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "agent", 1, window))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_UnlimitedWhenMaxRPMZero(t *testing.T) {
	limiter := NewRateLimiter()
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(ctx, "agent", 0, time.Second))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
