// Package event implements the typed, topologically-ordered, dependency-aware
// event bus described in spec.md C1. Handlers run on a small dedicated worker
// pool, never on the emitting goroutine, and the bus tracks hierarchical
// scope (parent/previous/triggered-by chains) across a logical call chain.
//
// Go has no thread-local storage, so the "each thread maintains a stack of
// frames" wording in spec.md §4.1 is implemented with an explicit
// context.Context carrying the scope stack: callers thread the context
// returned by Emit back into subsequent calls along the same logical chain,
// the same way the teacher's executor threads context.Context through LLM
// and tool calls.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type discriminates events. Concrete event types are declared by producers
// (agent, tool, task, crew, memory...) as Type constants; the bus itself is
// agnostic to their meaning except for the scope classification below.
type Type string

// Scope classifies an event type as opening, closing, or neutral with
// respect to the hierarchical nesting tracked per spec.md §4.1.
type Scope int

const (
	ScopeNeutral Scope = iota
	ScopeOpen
	ScopeClose
)

// Category is the fixed enumeration of nestable scopes from spec.md §4.1.
type Category string

const (
	CategoryAgent     Category = "agent"
	CategoryTask      Category = "task"
	CategoryCrew      Category = "crew"
	CategoryLLM       Category = "llm"
	CategoryTool      Category = "tool"
	CategoryMemory    Category = "memory"
	CategoryKnowledge Category = "knowledge"
	CategoryFlow      Category = "flow"
)

// classification describes how a single event Type participates in scope
// nesting: its Scope role and which Category/partner it belongs to.
type classification struct {
	scope    Scope
	category Category
	// partner is the Type that closes this one, when scope == ScopeOpen.
	// Only meaningful for ScopeOpen entries; used to validate that a
	// scope-closing event pairs with the opener's declared partner.
	partner Type
}

// Event is a single point in the bus's history. Three identifier chains are
// preserved per spec.md §3 / §9: ParentEventID (enclosing scope),
// PreviousEventID (linear chain on the same logical sequence), and
// TriggeredByEventID (causal hop). Reducing these to one loses debugging
// power, so all three are always populated when applicable.
type Event struct {
	ID                 string
	Type               Type
	Timestamp          time.Time
	SourceFingerprint   string
	SourceType          string
	TaskID              string
	AgentID             string
	ParentEventID       string
	PreviousEventID     string
	TriggeredByEventID  string
	EmissionSequence    uint64
	Source              any
	Payload             any
}

// NewEventID returns a fresh UUIDv4 string, the stable event_id format
// required by spec.md §3.
func NewEventID() string {
	return uuid.NewString()
}

// Error reports a bus-level configuration or dispatch problem.
type Error struct {
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op, msg string, err error) *Error {
	return &Error{Component: "event.Bus", Operation: op, Message: msg, Err: err}
}
