package task

import "context"

// Programmatic is a function-form guardrail over a task's output, per
// spec.md §4.5. A false ok carries feedback to append to the executor's
// message history before retrying.
type Programmatic func(Output) (ok bool, message string)

// DescriptiveGuardrail judges a task's output against a natural-language
// condition via a secondary LLM critic call. Concrete judging is out of
// scope for the execution core per spec.md §4.5 ("specified as a
// collaborator interface") — this package only defines the contract a
// crew wires a judge implementation against.
type DescriptiveGuardrail interface {
	Condition() string
	Judge(ctx context.Context, output Output) (ok bool, message string, err error)
}

// Guardrails bundles a task's configured validators, evaluated in order.
type Guardrails struct {
	Programmatic []Programmatic
	Descriptive  []DescriptiveGuardrail
}

// Enforce runs every configured guardrail against output and returns the
// first rejection's feedback message, or ok=true if all passed.
func (g Guardrails) Enforce(ctx context.Context, output Output) (ok bool, message string, err error) {
	for _, p := range g.Programmatic {
		if passed, msg := p(output); !passed {
			return false, msg, nil
		}
	}
	for _, d := range g.Descriptive {
		passed, msg, jerr := d.Judge(ctx, output)
		if jerr != nil {
			return false, "", jerr
		}
		if !passed {
			return false, msg, nil
		}
	}
	return true, "", nil
}
