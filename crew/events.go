package crew

import "github.com/kadirpekel/crewcore/event"

// Lifecycle event types for a crew run, per spec.md §4.1's crew category.
const (
	EventKickoffStarted  event.Type = "crew.kickoff.started"
	EventKickoffFinished event.Type = "crew.kickoff.finished"
	EventKickoffFailed   event.Type = "crew.kickoff.failed"
)

// RegisterScopes declares the crew lifecycle events to bus: started/
// finished bracket the outermost scope so every task/agent/tool/llm event
// during a run nests under it, per spec.md §4.1.
func RegisterScopes(bus *event.Bus) {
	bus.RegisterOpen(EventKickoffStarted, event.CategoryCrew, EventKickoffFinished)
	bus.RegisterClose(EventKickoffFinished, event.CategoryCrew)
	bus.RegisterNeutral(EventKickoffFailed, event.CategoryCrew)
}
