package crew

import "github.com/kadirpekel/crewcore/task"

// BeforeKickoff may transform the input map before any task runs.
type BeforeKickoff func(inputs map[string]string) map[string]string

// AfterKickoff may transform the final CrewOutput.
type AfterKickoff func(output CrewOutput) CrewOutput

// TaskCallback fires after each task completes, per spec.md §4.6
// ("Callbacks").
type TaskCallback func(output task.Output)

// Callbacks bundles a crew's registered hooks, composed in registration
// order, per spec.md §4.6 ("All callbacks are synchronous hooks... they
// may not mutate the crew's task list").
type Callbacks struct {
	BeforeKickoff []BeforeKickoff
	AfterKickoff  []AfterKickoff
	TaskCallback  []TaskCallback
}

func (c Callbacks) runBeforeKickoff(inputs map[string]string) map[string]string {
	for _, fn := range c.BeforeKickoff {
		inputs = fn(inputs)
	}
	return inputs
}

func (c Callbacks) runAfterKickoff(output CrewOutput) CrewOutput {
	for _, fn := range c.AfterKickoff {
		output = fn(output)
	}
	return output
}

func (c Callbacks) runTaskCallback(output task.Output) {
	for _, fn := range c.TaskCallback {
		fn(output)
	}
}
