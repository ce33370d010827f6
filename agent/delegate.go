package agent

import (
	"context"
	"fmt"

	"github.com/kadirpekel/crewcore/tools"
)

// delegateTool implements the two synthetic tools injected when an agent
// permits delegation, per spec.md §4.4 ("Delegation tools"). Each performs
// a nested executor invocation on the target agent with a freshly built
// sub-prompt; depth is bounded by the owning Executor's MaxDelegationDepth.
const (
	ToolDelegateWork = "delegate_work_to_coworker"
	ToolAskQuestion  = "ask_question_to_coworker"
)

type delegateTool struct {
	owner *Executor
	ask   bool
}

func (t *delegateTool) Name() string {
	if t.ask {
		return ToolAskQuestion
	}
	return ToolDelegateWork
}

func (t *delegateTool) Description() string {
	if t.ask {
		return "Ask a coworker agent a question and receive their answer."
	}
	return "Delegate a piece of work to a coworker agent and receive their result."
}

func (t *delegateTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"coworker": map[string]any{"type": "string", "description": "name of the target agent"},
			"task":     map[string]any{"type": "string", "description": "the work item or question"},
			"context":  map[string]any{"type": "string", "description": "additional context"},
		},
		"required": []string{"coworker", "task"},
	}
}

func (t *delegateTool) MaxUsageCount() int                   { return 0 }
func (t *delegateTool) ShouldCache(map[string]any, any) bool { return false }
func (t *delegateTool) ResultAsAnswer() bool                 { return false }
func (t *delegateTool) EnvVars() []tools.EnvVar              { return nil }

func (t *delegateTool) Run(ctx context.Context, args map[string]any) (any, error) {
	if t.owner.delegationDepth >= t.owner.cfg.MaxDelegationDepth {
		return nil, fmt.Errorf("delegation depth limit (%d) reached", t.owner.cfg.MaxDelegationDepth)
	}
	coworkerName, _ := args["coworker"].(string)
	task, _ := args["task"].(string)
	extraCtx, _ := args["context"].(string)

	target, ok := t.owner.delegates[coworkerName]
	if !ok {
		return nil, fmt.Errorf("no coworker agent named %q", coworkerName)
	}

	sub := target.withDepth(t.owner.delegationDepth + 1)
	prompt := task
	if extraCtx != "" {
		prompt = task + "\n\nAdditional context:\n" + extraCtx
	}

	result, err := sub.Run(ctx, t.owner.taskKeyForDelegation(coworkerName, task), prompt, nil)
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

func (e *Executor) withDepth(depth int) *Executor {
	cp := *e
	cp.delegationDepth = depth
	return &cp
}

func (e *Executor) taskKeyForDelegation(coworker, task string) string {
	return e.id.Key() + ">" + coworker + "|" + task
}
