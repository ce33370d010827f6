// Package reasoning implements the ReAct/native dispatch machinery that
// backs agent.Executor: the text-mode parser, the state machine, and the
// shared result/message types, grounded on the teacher's
// reasoning/interfaces.go and reasoning/state.go.
package reasoning

import (
	"time"

	"github.com/kadirpekel/crewcore/llms"
)

// Result is the terminal output of a single executor run, per spec.md
// §4.4 ("Output").
type Result struct {
	Output    string
	Trace     []Step
	Messages  []llms.Message
	Usage     llms.Usage
	State     State
	Iterations int
}

// Step records one iteration's observable trace, for debugging and for the
// reasoning_trace field of Result.
type Step struct {
	Iteration int
	Thought   string
	ToolName  string
	ToolInput any
	Observation string
	FinalAnswer string
	Timestamp time.Time
}

// StepCallback fires after each executor iteration, per spec.md §4.6
// ("Callbacks" — step_callback).
type StepCallback func(step Step)

// State is the executor's state machine position, per spec.md §4.4
// ("State machine").
type State int

const (
	StateIdle State = iota
	StateThinking
	StateToolDispatch
	StateObserve
	StateFinal
	StateTimedOut
	StateFatalError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateThinking:
		return "Thinking"
	case StateToolDispatch:
		return "ToolDispatch"
	case StateObserve:
		return "Observe"
	case StateFinal:
		return "Final"
	case StateTimedOut:
		return "TimedOut"
	case StateFatalError:
		return "FatalError"
	default:
		return "Unknown"
	}
}
