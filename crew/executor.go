package crew

import (
	"context"
	"time"

	"github.com/kadirpekel/crewcore/reasoning"
	"github.com/kadirpekel/crewcore/task"
)

// rateLimitedExecutor decorates a task.Executor with a per-agent max_rpm
// wait before each call, without requiring the task package to know
// anything about rate limiting.
type rateLimitedExecutor struct {
	inner   task.Executor
	limiter *RateLimiter
	key     string
	maxRPM  int
	window  time.Duration
}

func (e *rateLimitedExecutor) Run(ctx context.Context, taskKey, prompt string, stepCb reasoning.StepCallback) (reasoning.Result, error) {
	if err := e.limiter.Wait(ctx, e.key, e.maxRPM, e.window); err != nil {
		return reasoning.Result{}, err
	}
	return e.inner.Run(ctx, taskKey, prompt, stepCb)
}
