// Package crew implements the Crew Scheduler from spec.md §4.6 (C6):
// sequential and hierarchical task ordering, manager-agent delegation,
// context propagation between tasks, rate limiting, callback composition,
// and usage aggregation into a CrewOutput. Grounded on the teacher's
// team/team.go Team/SharedState/TeamError shape, generalized from its
// DAG/autonomous workflow-executor domain to spec.md's fixed
// sequential/hierarchical process pair.
package crew

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/kadirpekel/crewcore/agent"
	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/event"
	"github.com/kadirpekel/crewcore/llms"
	"github.com/kadirpekel/crewcore/reasoning"
	"github.com/kadirpekel/crewcore/task"
)

// AgentHandle bundles a worker agent's config and its built executor, as
// assembled by component.Manager.
type AgentHandle struct {
	Name     string
	Cfg      config.AgentConfig
	Executor *agent.Executor
}

// Crew coordinates a task list over a pool of agents per a declared
// process mode, per spec.md §3 ("Crew") and §4.6.
type Crew struct {
	cfg     config.CrewConfig
	tasks   []*task.Task
	agents  map[string]AgentHandle
	manager *AgentHandle

	bus       *event.Bus
	log       hclog.Logger
	runner    *task.Runner
	limiter   *RateLimiter
	usage     *llms.Aggregator
	callbacks Callbacks

	contextProvider ContextProvider
	memoryWriter    MemoryWriter
	humanInput      task.HumanInputFunc
	stepCallback    reasoning.StepCallback

	guardrails map[string]task.Guardrails // task name -> guardrails
	schemas    map[string]map[string]any  // task name -> output schema
}

// Option configures optional Crew collaborators.
type Option func(*Crew)

func WithContextProvider(p ContextProvider) Option { return func(c *Crew) { c.contextProvider = p } }
func WithMemoryWriter(w MemoryWriter) Option        { return func(c *Crew) { c.memoryWriter = w } }
func WithHumanInput(fn task.HumanInputFunc) Option  { return func(c *Crew) { c.humanInput = fn } }
func WithStepCallback(cb reasoning.StepCallback) Option {
	return func(c *Crew) { c.stepCallback = cb }
}
func WithCallbacks(cb Callbacks) Option { return func(c *Crew) { c.callbacks = cb } }
func WithGuardrails(taskName string, g task.Guardrails) Option {
	return func(c *Crew) { c.guardrails[taskName] = g }
}
func WithOutputSchema(taskName string, schema map[string]any) Option {
	return func(c *Crew) { c.schemas[taskName] = schema }
}

// New builds a Crew ready to run tasks in order over agents, with manager
// non-nil only for ProcessHierarchical. RegisterScopes, agent.RegisterScopes
// and task.RegisterScopes must already have been called against bus.
func New(cfg config.CrewConfig, tasks []*task.Task, agents map[string]AgentHandle, manager *AgentHandle, bus *event.Bus, log hclog.Logger, opts ...Option) *Crew {
	usage := &llms.Aggregator{}
	delegates := make(map[string]*agent.Executor, len(agents))
	for name, h := range agents {
		h.Executor.SetUsageAggregator(usage)
		delegates[name] = h.Executor
	}
	for _, h := range agents {
		if h.Cfg.AllowDelegation {
			h.Executor.SetDelegates(delegates)
		}
	}
	if manager != nil {
		manager.Executor.SetUsageAggregator(usage)
		manager.Executor.SetDelegates(delegates)
	}

	c := &Crew{
		cfg:        cfg,
		tasks:      tasks,
		agents:     agents,
		manager:    manager,
		bus:        bus,
		log:        log,
		runner:     task.NewRunner(bus),
		limiter:    NewRateLimiter(),
		usage:      usage,
		guardrails: make(map[string]task.Guardrails),
		schemas:    make(map[string]map[string]any),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Kickoff runs every task in order (sequential) or through the manager
// (hierarchical), per spec.md §4.6, returning the final CrewOutput. On a
// fatal task failure the partial CrewOutput (outputs captured so far) is
// returned alongside the error, per spec.md §7.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (CrewOutput, error) {
	ctx = event.WithChain(ctx)
	inputs = c.callbacks.runBeforeKickoff(inputs)

	ctx, _ = c.bus.Emit(ctx, EventKickoffStarted, c)
	defer c.bus.Emit(ctx, EventKickoffFinished, c)

	byName := make(map[string]task.Output, len(c.tasks))
	var ordered []task.Output

	for _, t := range c.tasks {
		exec, agentName, maxRPM, err := c.resolveExecutor(t)
		if err != nil {
			c.bus.Emit(ctx, EventKickoffFailed, c)
			return c.partial(ordered), newError("Kickoff", "resolve agent", err)
		}

		limited := &rateLimitedExecutor{inner: exec, limiter: c.limiter, key: agentName, maxRPM: maxRPM, window: c.cfg.RateWindow}

		contextSection := c.buildContextSection(t, byName)
		retrievalSection := c.buildRetrievalSection(ctx, t)

		output, err := c.runner.Run(
			ctx, t, limited, agentName, inputs,
			contextSection, retrievalSection, c.cfg.InjectDate,
			c.guardrails[t.Name], c.schemas[t.Name],
			c.humanInput, c.stepCallback,
		)
		if err != nil {
			c.bus.Emit(ctx, EventKickoffFailed, c)
			return c.partial(ordered), newError("Kickoff", fmt.Sprintf("task %q failed", t.Name), err)
		}

		byName[t.Name] = output
		ordered = append(ordered, output)
		c.callbacks.runTaskCallback(output)

		if c.memoryWriter != nil {
			if werr := c.memoryWriter.RecordTaskOutput(ctx, agentName, output); werr != nil {
				c.log.Warn("memory write failed", "task", t.Name, "error", werr)
			}
		}
	}

	result := c.callbacks.runAfterKickoff(c.partial(ordered))
	return result, nil
}

// resolveExecutor picks the producing executor and its rate-limit
// settings for t: the declared agent for sequential process, or the
// manager for hierarchical.
func (c *Crew) resolveExecutor(t *task.Task) (task.Executor, string, int, error) {
	if c.cfg.Process == config.ProcessHierarchical {
		if c.manager == nil {
			return nil, "", 0, fmt.Errorf("hierarchical process requires a manager agent")
		}
		return c.manager.Executor, c.manager.Name, c.manager.Cfg.MaxRPM, nil
	}
	h, ok := c.agents[t.Cfg.Agent]
	if !ok {
		return nil, "", 0, fmt.Errorf("task %q references unknown agent %q", t.Name, t.Cfg.Agent)
	}
	return h.Executor, h.Name, h.Cfg.MaxRPM, nil
}

// buildContextSection concatenates prerequisite task outputs, per spec.md
// §4.6 ("Sequential process"): task.context when explicitly set, else
// every preceding task's output.
func (c *Crew) buildContextSection(t *task.Task, byName map[string]task.Output) string {
	var names []string
	if len(t.Cfg.Context) > 0 {
		names = t.Cfg.Context
	} else {
		for _, prior := range c.tasks {
			if prior == t {
				break
			}
			names = append(names, prior.Name)
		}
	}

	var b strings.Builder
	for _, name := range names {
		out, ok := byName[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "[%s output by %s]\n%s\n\n", name, out.Agent, out.Raw)
	}
	return strings.TrimSpace(b.String())
}

func (c *Crew) buildRetrievalSection(ctx context.Context, t *task.Task) string {
	if c.contextProvider == nil {
		return ""
	}
	section, err := c.contextProvider.BuildContext(ctx, t.Cfg.Description)
	if err != nil {
		c.log.Warn("context retrieval failed", "task", t.Name, "error", err)
		return ""
	}
	return section
}

func (c *Crew) partial(outputs []task.Output) CrewOutput {
	raw := ""
	if len(outputs) > 0 {
		raw = outputs[len(outputs)-1].Raw
	}
	total, successful := c.usage.Totals()
	return CrewOutput{
		Raw:         raw,
		TaskOutputs: outputs,
		Usage:       summaryFrom(total, successful),
	}
}
