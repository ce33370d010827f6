package agent

import "github.com/kadirpekel/crewcore/event"

// Lifecycle event types for the reasoning loop, per spec.md §4.4 step 2
// ("Emit agent-execution-step event") and §4.1's agent category.
const (
	EventExecutionStarted event.Type = "agent.execution.started"
	EventExecutionStep    event.Type = "agent.execution.step"
	EventExecutionFinished event.Type = "agent.execution.finished"
)

// RegisterScopes declares the agent lifecycle events to bus: execution
// started/finished bracket a scope (so tool and LLM events nest under the
// owning agent execution); the per-iteration step event is neutral.
func RegisterScopes(bus *event.Bus) {
	bus.RegisterOpen(EventExecutionStarted, event.CategoryAgent, EventExecutionFinished)
	bus.RegisterClose(EventExecutionFinished, event.CategoryAgent)
	bus.RegisterNeutral(EventExecutionStep, event.CategoryAgent)
}

// StepPayload is the Payload of an EventExecutionStep event.
type StepPayload struct {
	Iteration int
	ToolName  string
}
