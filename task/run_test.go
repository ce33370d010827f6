package task

import (
	"context"
	"testing"

	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/event"
	"github.com/kadirpekel/crewcore/llms"
	"github.com/kadirpekel/crewcore/reasoning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedExecutor returns its outputs queue in order, one per Run call.
type scriptedExecutor struct {
	outputs []string
	calls   int
}

func (s *scriptedExecutor) Run(ctx context.Context, taskKey, prompt string, stepCb reasoning.StepCallback) (reasoning.Result, error) {
	out := s.outputs[s.calls]
	s.calls++
	return reasoning.Result{Output: out, Messages: []llms.Message{{Role: "assistant", Content: out}}}, nil
}

func newTestRunner() *Runner {
	bus := event.New(nil)
	RegisterScopes(bus)
	return NewRunner(bus)
}

// S5 from spec.md §8: a programmatic guardrail rejects a short answer,
// feedback is appended, and the retry succeeds.
func TestRunner_Run_GuardrailRetrySucceeds(t *testing.T) {
	exec := &scriptedExecutor{outputs: []string{"short", "a sufficiently long answer that passes the guardrail check"}}
	tk := New(config.TaskConfig{Description: "d", ExpectedOutput: "e", GuardrailMaxRetries: 2})

	guardrails := Guardrails{Programmatic: []Programmatic{
		func(o Output) (bool, string) {
			if len(o.Raw) < 50 {
				return false, "answer too short, please elaborate"
			}
			return true, ""
		},
	}}

	runner := newTestRunner()
	output, err := runner.Run(context.Background(), tk, exec, "writer", nil, "", "", false, guardrails, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, exec.calls)
	assert.Equal(t, "a sufficiently long answer that passes the guardrail check", output.Raw)
}

func TestRunner_Run_GuardrailExhaustionFails(t *testing.T) {
	exec := &scriptedExecutor{outputs: []string{"short", "still short", "nope", "nah"}}
	tk := New(config.TaskConfig{Description: "d", ExpectedOutput: "e", GuardrailMaxRetries: 2})

	guardrails := Guardrails{Programmatic: []Programmatic{
		func(o Output) (bool, string) { return false, "always rejected" },
	}}

	runner := newTestRunner()
	_, err := runner.Run(context.Background(), tk, exec, "writer", nil, "", "", false, guardrails, nil, nil, nil)
	require.Error(t, err)
	var taskErr *Error
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, ErrGuardrail, taskErr.Kind)
}

func TestRunner_Run_NoGuardrailsPassesThrough(t *testing.T) {
	exec := &scriptedExecutor{outputs: []string{"final answer"}}
	tk := New(config.TaskConfig{Description: "d", ExpectedOutput: "e"})

	runner := newTestRunner()
	output, err := runner.Run(context.Background(), tk, exec, "writer", nil, "", "", false, Guardrails{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "final answer", output.Raw)
	assert.Equal(t, "writer", output.Agent)
}

func TestRunner_Run_HumanInputReplacesOutput(t *testing.T) {
	exec := &scriptedExecutor{outputs: []string{"draft answer"}}
	tk := New(config.TaskConfig{Description: "d", ExpectedOutput: "e", HumanInput: true})

	humanInput := func(ctx context.Context, prompt string) (string, error) {
		return "human-approved answer", nil
	}

	runner := newTestRunner()
	output, err := runner.Run(context.Background(), tk, exec, "writer", nil, "", "", false, Guardrails{}, nil, humanInput, nil)
	require.NoError(t, err)
	assert.Equal(t, "human-approved answer", output.Raw)
}
