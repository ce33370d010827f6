package crew

import (
	"context"

	"github.com/kadirpekel/crewcore/task"
)

// ContextProvider is C7's collaborator contract as seen by the scheduler:
// given a task description, return the labeled retrieval section to append
// to its prompt, per spec.md §4.7 ("Context building"). Concrete memory
// aggregation lives in the memory package; crew only depends on this
// narrow interface to stay decoupled from it.
type ContextProvider interface {
	BuildContext(ctx context.Context, query string) (string, error)
}

// MemoryWriter is C7's write-side contract: after a task completes, its
// output is recorded into short-term/entity memory, per spec.md §4.6
// ("Context propagation... short-term and entity memories are updated").
type MemoryWriter interface {
	RecordTaskOutput(ctx context.Context, agentID string, output task.Output) error
}
