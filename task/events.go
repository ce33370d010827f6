package task

import "github.com/kadirpekel/crewcore/event"

// Lifecycle event types for task execution, per spec.md §4.1's task
// category.
const (
	EventStarted  event.Type = "task.started"
	EventRetry    event.Type = "task.retry"
	EventFinished event.Type = "task.finished"
	EventFailed   event.Type = "task.failed"
)

// RegisterScopes declares the task lifecycle events to bus: started/
// finished bracket a scope so agent-execution events nest under the owning
// task, per spec.md §4.1. EventFinished closes the scope on both success
// and failure; EventFailed is an additional, neutral marker emitted
// alongside it so failure is independently observable without declaring a
// second (ambiguous) close partner for the same opener.
func RegisterScopes(bus *event.Bus) {
	bus.RegisterOpen(EventStarted, event.CategoryTask, EventFinished)
	bus.RegisterClose(EventFinished, event.CategoryTask)
	bus.RegisterNeutral(EventFailed, event.CategoryTask)
	bus.RegisterNeutral(EventRetry, event.CategoryTask)
}

// RetryPayload is the Payload of an EventRetry event.
type RetryPayload struct {
	Attempt  int
	Feedback string
}
