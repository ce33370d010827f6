package crew

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces each agent's max_rpm as a token bucket over a
// rolling window, per spec.md §4.6 ("Rate limiting"). One limiter is
// lazily created per agent key and reused for the life of the crew run.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until key's bucket has a token available, or ctx is
// cancelled. maxRPM <= 0 means unlimited.
func (r *RateLimiter) Wait(ctx context.Context, key string, maxRPM int, window time.Duration) error {
	if maxRPM <= 0 {
		return nil
	}
	return r.limiterFor(key, maxRPM, window).Wait(ctx)
}

func (r *RateLimiter) limiterFor(key string, maxRPM int, window time.Duration) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[key]; ok {
		return l
	}
	interval := window / time.Duration(maxRPM)
	l := rate.NewLimiter(rate.Every(interval), maxRPM)
	r.limiters[key] = l
	return l
}
