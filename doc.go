// Package crewcore implements a declarative multi-agent execution core:
// an event bus, a tool registry and usage engine, an LLM provider
// abstraction, an agent reasoning loop (native function-calling or
// text-mode ReAct), a task contract, a sequential/hierarchical crew
// scheduler, and a memory/context aggregator.
//
// A crew is assembled from a config.Config (YAML via config.LoadConfig)
// by component.Manager, which builds the LLM registry, tool registry, and
// memory aggregator and hands them to crew.New:
//
//	cfg, err := config.LoadConfig("crew.yaml")
//	mgr, err := component.NewManager(cfg)
//	c, err := mgr.BuildCrew()
//	output, err := c.Kickoff(ctx, map[string]string{"topic": "..."})
//
// Concrete LLM HTTP clients beyond the bundled Ollama reference
// implementation, concrete tool bodies, external memory services, and a
// CLI are left as collaborator interfaces for callers to supply.
package crewcore
