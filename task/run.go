package task

import (
	"context"
	"time"

	"github.com/kadirpekel/crewcore/event"
	"github.com/kadirpekel/crewcore/llms"
	"github.com/kadirpekel/crewcore/reasoning"
)

func humanMessage(content string) llms.Message {
	return llms.Message{Role: "user", Content: content}
}

// Executor is the collaborator contract task.Runner drives: anything that
// can run a bounded reasoning loop over a prompt and return a terminal
// result. agent.Executor satisfies this; the Runner depends on the
// interface, not the concrete type, so task stays decoupled from agent the
// way the teacher keeps its service layers behind narrow interfaces.
type Executor interface {
	Run(ctx context.Context, taskKey, prompt string, stepCb reasoning.StepCallback) (reasoning.Result, error)
}

// HumanInputFunc requests feedback from a human reviewer, per spec.md
// §4.5 ("Human input"). Concrete prompting (CLI, web, Slack...) is a
// collaborator left to the caller.
type HumanInputFunc func(ctx context.Context, prompt string) (string, error)

// Runner drives a single task through the full contract: prompt
// construction, the reasoning loop, guardrail enforcement with retries,
// output formatting, the output-file sink, and the human-input pause.
type Runner struct {
	Bus *event.Bus
}

func NewRunner(bus *event.Bus) *Runner {
	return &Runner{Bus: bus}
}

// Run executes t once, looping on guardrail rejection up to
// t.Cfg.GuardrailMaxRetries, per spec.md §4.5. agentName is the producing
// agent's identifier recorded on the returned Output.
func (r *Runner) Run(
	ctx context.Context,
	t *Task,
	exec Executor,
	agentName string,
	inputs map[string]string,
	contextSection, retrievalSection string,
	injectDate bool,
	guardrails Guardrails,
	outputSchema map[string]any,
	humanInput HumanInputFunc,
	stepCb reasoning.StepCallback,
) (Output, error) {
	ctx, _ = r.Bus.Emit(ctx, EventStarted, t, event.WithTaskID(t.Key()), event.WithAgentID(agentName))
	t.StartedAt = time.Now()

	prompt := t.BuildPrompt(inputs, contextSection, retrievalSection, injectDate)
	feedback := ""

	var output Output
	for attempt := 0; ; attempt++ {
		if feedback != "" {
			prompt = prompt + "\n\nFeedback from a previous attempt: " + feedback
		}

		result, err := exec.Run(ctx, t.Key(), prompt, stepCb)
		if err != nil {
			t.EndedAt = time.Now()
			r.Bus.Emit(ctx, EventFailed, t, event.WithTaskID(t.Key()))
			r.Bus.Emit(ctx, EventFinished, t, event.WithTaskID(t.Key()), event.WithAgentID(agentName))
			return Output{}, &Error{Kind: ErrFatal, Task: t.Name, Message: "executor failed", Err: err}
		}

		output = Output{
			Raw:      result.Output,
			Agent:    agentName,
			Messages: result.Messages,
			Usage:    result.Usage,
		}

		output, err = ApplyFormat(output, t.Cfg.OutputFormat, outputSchema)
		if err != nil {
			if attempt >= t.Cfg.GuardrailMaxRetries {
				t.EndedAt = time.Now()
				r.Bus.Emit(ctx, EventFailed, t, event.WithTaskID(t.Key()))
				r.Bus.Emit(ctx, EventFinished, t, event.WithTaskID(t.Key()), event.WithAgentID(agentName))
				return Output{}, &Error{Kind: ErrFormat, Task: t.Name, Message: "output formatting failed", Err: err}
			}
			feedback = "Your previous output could not be parsed/validated as " + string(t.Cfg.OutputFormat) + ": " + err.Error()
			r.Bus.Emit(ctx, EventRetry, t, event.WithTaskID(t.Key()), event.WithPayload(RetryPayload{Attempt: attempt + 1, Feedback: feedback}))
			continue
		}

		ok, message, gerr := guardrails.Enforce(ctx, output)
		if gerr != nil {
			t.EndedAt = time.Now()
			r.Bus.Emit(ctx, EventFailed, t, event.WithTaskID(t.Key()))
			r.Bus.Emit(ctx, EventFinished, t, event.WithTaskID(t.Key()), event.WithAgentID(agentName))
			return Output{}, &Error{Kind: ErrGuardrail, Task: t.Name, Message: "guardrail judge failed", Err: gerr}
		}
		if ok {
			break
		}
		if attempt >= t.Cfg.GuardrailMaxRetries {
			t.EndedAt = time.Now()
			r.Bus.Emit(ctx, EventFailed, t, event.WithTaskID(t.Key()))
			r.Bus.Emit(ctx, EventFinished, t, event.WithTaskID(t.Key()), event.WithAgentID(agentName))
			return Output{}, &Error{Kind: ErrGuardrail, Task: t.Name, Message: "guardrail retries exhausted: " + message}
		}
		feedback = message
		r.Bus.Emit(ctx, EventRetry, t, event.WithTaskID(t.Key()), event.WithPayload(RetryPayload{Attempt: attempt + 1, Feedback: feedback}))
	}

	if t.Cfg.HumanInput && humanInput != nil {
		human, herr := humanInput(ctx, output.Raw)
		if herr == nil && human != "" {
			output.Messages = append(output.Messages, humanMessage(human))
			output.Raw = human
		}
	}

	if t.Cfg.OutputFile != "" {
		if err := WriteOutputFile(t.Cfg.OutputFile, output.Raw, t.Cfg.CreateDirectory); err != nil {
			t.EndedAt = time.Now()
			r.Bus.Emit(ctx, EventFailed, t, event.WithTaskID(t.Key()))
			r.Bus.Emit(ctx, EventFinished, t, event.WithTaskID(t.Key()), event.WithAgentID(agentName))
			return output, &Error{Kind: ErrFatal, Task: t.Name, Message: "output sink write failed", Err: err}
		}
	}

	t.EndedAt = time.Now()
	r.Bus.Emit(ctx, EventFinished, t, event.WithTaskID(t.Key()), event.WithAgentID(agentName))
	return output, nil
}
