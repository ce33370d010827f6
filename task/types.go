// Package task implements the Task Contract from spec.md §4.5 (C5): prompt
// construction and {key} interpolation, guardrail enforcement, output
// formatting, atomic output-file writes, and the human-input pause point.
// Grounded on the teacher's pkg/task/task.go state/error shape, generalized
// from its A2A task-service domain to spec.md's prompt-building contract.
package task

import (
	"time"

	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/llms"
)

// Key returns the deterministic task identity hash from spec.md §6:
// hash("description|expected_output").
func Key(description, expectedOutput string) string {
	return hashPair(description, expectedOutput)
}

// Task is a runnable instance of a config.TaskConfig: the declarative
// fields plus the mutable timing/usage counters spec.md §3 assigns a task
// ("timing fields (start/end, used_tools, delegations)").
type Task struct {
	Name string
	Cfg  config.TaskConfig
	key  string

	StartedAt   time.Time
	EndedAt     time.Time
	UsedTools   []string
	Delegations int
}

// New builds a Task from its declarative config. The key is derived from
// the original, uninterpolated description/expected_output so it stays
// stable across input interpolation, mirroring agent.Identity.Key.
func New(cfg config.TaskConfig) *Task {
	return &Task{
		Name: cfg.Name,
		Cfg:  cfg,
		key:  Key(cfg.Description, cfg.ExpectedOutput),
	}
}

func (t *Task) Key() string { return t.key }

// Output is the result of a successful task execution, per spec.md §3
// ("TaskOutput"). Produced exactly once per successful execution.
type Output struct {
	Raw        string
	Structured map[string]any
	JSON       map[string]any
	Agent      string
	Format     config.OutputFormat
	Messages   []llms.Message
	Usage      llms.Usage
}
