// Package component wires a config.Config into a runnable crew.Crew, the
// single place that constructs every collaborator (LLM providers, tool
// registry, memory aggregator, agent executors) and hands the assembled
// graph to crew.New. Grounded on the teacher's component/manager.go
// ComponentManager, trimmed from its plugin/database/embedder registry set
// down to the collaborators this module's SPEC_FULL actually has: an LLM
// registry, a tool registry+engine, and a memory aggregator.
package component

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/kadirpekel/crewcore/agent"
	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/crew"
	"github.com/kadirpekel/crewcore/event"
	"github.com/kadirpekel/crewcore/llms"
	"github.com/kadirpekel/crewcore/memory"
	"github.com/kadirpekel/crewcore/task"
	"github.com/kadirpekel/crewcore/tools"
)

// Manager owns every component registry built from a single config.Config,
// mirroring the teacher's ComponentManager shape (construct once, expose
// getters, build a runnable crew on demand).
type Manager struct {
	cfg *config.Config
	log hclog.Logger

	llmRegistry  *llms.Registry
	toolRegistry *tools.Registry
	toolEngine   *tools.Engine
	bus          *event.Bus
	aggregator   *memory.Aggregator
}

// NewManager validates cfg, constructs every registry, and registers the
// event bus scopes each component package declares. It does not build
// agents or the crew yet — that happens per-kickoff in BuildCrew so a
// single Manager can serve multiple independent crew runs sharing one bus
// and one set of registries.
func NewManager(cfg *config.Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("component: invalid config: %w", err)
	}

	log := newLogger(cfg.Logging)
	bus := event.New(log.Named("event"))
	crew.RegisterScopes(bus)
	task.RegisterScopes(bus)
	agent.RegisterScopes(bus)
	tools.RegisterScopes(bus)

	llmRegistry := llms.NewRegistry()
	for name, llmCfg := range cfg.LLMs {
		provider, err := newProvider(llmCfg)
		if err != nil {
			return nil, fmt.Errorf("component: llm %q: %w", name, err)
		}
		if err := llmRegistry.Register(name, provider); err != nil {
			return nil, fmt.Errorf("component: register llm %q: %w", name, err)
		}
	}

	toolRegistry := tools.NewRegistry(cfg.Tools)
	toolEngine := tools.NewEngine(toolRegistry, bus)

	aggregator, err := buildMemory(cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("component: memory: %w", err)
	}

	return &Manager{
		cfg:          cfg,
		log:          log,
		llmRegistry:  llmRegistry,
		toolRegistry: toolRegistry,
		toolEngine:   toolEngine,
		bus:          bus,
		aggregator:   aggregator,
	}, nil
}

// newProvider constructs the reference llms.Provider for an LLM entry. Only
// "ollama" is backed by a concrete implementation in this module (see
// DESIGN.md: provider SDKs for OpenAI/Anthropic/Gemini are out of scope for
// the execution core); any other declared type fails fast with a message
// naming what's missing rather than silently defaulting to Ollama.
func newProvider(cfg config.LLMProviderConfig) (llms.Provider, error) {
	switch cfg.Type {
	case "", "ollama":
		return llms.NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("provider type %q has no reference implementation; register a custom llms.Provider and use component.Manager.RegisterProvider", cfg.Type)
	}
}

// RegisterProvider lets a caller plug in a non-reference llms.Provider
// (e.g. an OpenAI/Anthropic client) under name before BuildCrew runs.
func (m *Manager) RegisterProvider(name string, p llms.Provider) error {
	return m.llmRegistry.Register(name, p)
}

// Bus returns the shared event bus so a caller can attach handlers before
// kicking off a crew.
func (m *Manager) Bus() *event.Bus { return m.bus }

// ToolRegistry exposes the shared tool registry so a caller can Register
// concrete tools (spec.md's tool plugin contract is intentionally left to
// callers — the core ships no built-in tools) before BuildCrew runs.
func (m *Manager) ToolRegistry() *tools.Registry { return m.toolRegistry }
