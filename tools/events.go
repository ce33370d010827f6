package tools

import "github.com/kadirpekel/crewcore/event"

// Lifecycle event types per spec.md §4.2: "On each invocation the engine
// emits tool-usage-started; on success tool-usage-finished carrying
// duration; on failure tool-usage-error with classification."
const (
	EventUsageStarted  event.Type = "tool.usage.started"
	EventUsageFinished event.Type = "tool.usage.finished"
	EventUsageError    event.Type = "tool.usage.error"
)

// RegisterScopes declares the tool lifecycle events to bus as a neutral
// (non-nesting) trio, matching spec.md §4.1's fixed category enumeration.
// Call once during crew wiring, before any tool invocation.
func RegisterScopes(bus *event.Bus) {
	bus.RegisterNeutral(EventUsageStarted, event.CategoryTool)
	bus.RegisterNeutral(EventUsageFinished, event.CategoryTool)
	bus.RegisterNeutral(EventUsageError, event.CategoryTool)
}

// UsageStartedPayload is the Payload of an EventUsageStarted event.
type UsageStartedPayload struct {
	ToolName string
	Args     map[string]any
}

// UsageFinishedPayload is the Payload of an EventUsageFinished event.
type UsageFinishedPayload struct {
	ToolName string
	Duration int64 // nanoseconds, avoids importing time into payload consumers
	Cached   bool
}

// UsageErrorPayload is the Payload of an EventUsageError event.
type UsageErrorPayload struct {
	ToolName string
	Kind     ErrorKind
	Message  string
}
