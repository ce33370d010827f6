package component

import (
	"fmt"

	"github.com/kadirpekel/crewcore/agent"
	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/crew"
	"github.com/kadirpekel/crewcore/task"
	"github.com/kadirpekel/crewcore/tools"
)

// BuildCrew assembles every agent executor and task declared in the
// Manager's config into a runnable crew.Crew. opts are forwarded to
// crew.New verbatim, letting a caller wire a HumanInputFunc, StepCallback,
// Callbacks, or per-task Guardrails/output schemas without this package
// needing to know about them.
func (m *Manager) BuildCrew(opts ...crew.Option) (*crew.Crew, error) {
	agents := make(map[string]crew.AgentHandle, len(m.cfg.Agents))
	for name, agentCfg := range m.cfg.Agents {
		handle, err := m.buildAgentHandle(name, agentCfg, m.toolRegistry)
		if err != nil {
			return nil, fmt.Errorf("component: agent %q: %w", name, err)
		}
		agents[name] = handle
	}

	tasks := make([]*task.Task, 0, len(m.cfg.Tasks))
	for _, taskCfg := range m.cfg.Tasks {
		tasks = append(tasks, task.New(taskCfg))
	}

	var manager *crew.AgentHandle
	if m.cfg.Crew.Process == config.ProcessHierarchical {
		handle, err := m.buildManagerHandle(agents)
		if err != nil {
			return nil, fmt.Errorf("component: manager agent: %w", err)
		}
		manager = &handle
	}

	if m.aggregator != nil {
		opts = append(opts, crew.WithContextProvider(m.aggregator), crew.WithMemoryWriter(m.aggregator))
	}

	return crew.New(m.cfg.Crew, tasks, agents, manager, m.bus, m.log, opts...), nil
}

// buildAgentHandle constructs one worker's executor, wiring only the tools
// it whitelists (or every registered tool when the whitelist is empty) and
// delegation support when allow_delegation is set; delegate wiring itself
// happens in crew.New once every handle exists.
func (m *Manager) buildAgentHandle(name string, cfg config.AgentConfig, shared *tools.Registry) (crew.AgentHandle, error) {
	provider, ok := m.llmRegistry.Get(cfg.LLM)
	if !ok {
		return crew.AgentHandle{}, fmt.Errorf("llm %q not registered", cfg.LLM)
	}

	reg := scopedToolRegistry(shared, cfg.Tools)
	id := agent.NewIdentity(cfg)
	exec := agent.NewExecutor(id, cfg, provider, reg, m.toolEngine, m.bus)

	return crew.AgentHandle{Name: name, Cfg: cfg, Executor: exec}, nil
}

// buildManagerHandle instantiates the synthetic manager agent for
// hierarchical process, per spec.md §4.6: its own LLM (from manager_agent
// or manager_llm), delegation enabled, and no direct tool access of its
// own — it coordinates purely through the delegation tools agent.Executor
// wires over the worker pool.
func (m *Manager) buildManagerHandle(workers map[string]crew.AgentHandle) (crew.AgentHandle, error) {
	cc := m.cfg.Crew

	var cfg config.AgentConfig
	if cc.ManagerAgent != "" {
		found, ok := m.cfg.Agents[cc.ManagerAgent]
		if !ok {
			return crew.AgentHandle{}, fmt.Errorf("manager_agent %q not found in agents", cc.ManagerAgent)
		}
		cfg = found
	} else {
		cfg = config.AgentConfig{
			Name:            "crew_manager",
			Role:            "Crew Manager",
			Goal:            "Coordinate the crew to complete every task by delegating to the right agent",
			Backstory:       "An experienced manager who knows every team member's strengths.",
			LLM:             cc.ManagerLLM,
			AllowDelegation: true,
		}
		cfg.SetDefaults()
	}
	cfg.AllowDelegation = true

	provider, ok := m.llmRegistry.Get(cfg.LLM)
	if !ok {
		return crew.AgentHandle{}, fmt.Errorf("manager llm %q not registered", cfg.LLM)
	}

	emptyReg := tools.NewRegistry(m.cfg.Tools)
	id := agent.NewIdentity(cfg)
	exec := agent.NewExecutor(id, cfg, provider, emptyReg, m.toolEngine, m.bus)

	return crew.AgentHandle{Name: cfg.Name, Cfg: cfg, Executor: exec}, nil
}

// scopedToolRegistry returns shared unchanged when whitelist is empty
// (spec.md default: an agent may use every registered tool), else a
// fresh registry containing only the whitelisted tools, per spec.md §4.2
// ("per-agent tool scoping").
func scopedToolRegistry(shared *tools.Registry, whitelist []string) *tools.Registry {
	if len(whitelist) == 0 {
		return shared
	}
	scoped := tools.NewRegistry(config.ToolConfigs{})
	for _, name := range whitelist {
		t, err := shared.Select(name)
		if err != nil {
			continue
		}
		_ = scoped.Register(t)
	}
	return scoped
}
