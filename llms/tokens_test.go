package llms

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_AddAccumulatesAndCountsRequests(t *testing.T) {
	var agg Aggregator
	agg.Add(Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	agg.Add(Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})

	total, successful := agg.Totals()
	assert.Equal(t, Usage{PromptTokens: 13, CompletionTokens: 7, TotalTokens: 20}, total)
	assert.Equal(t, 2, successful)
}

// Satisfies spec.md §8's invariant 4 in miniature: concurrent Add calls
// from parallel agents must not lose updates.
func TestAggregator_ConcurrentAddIsSafe(t *testing.T) {
	var agg Aggregator
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Add(Usage{TotalTokens: 1})
		}()
	}
	wg.Wait()

	total, successful := agg.Totals()
	assert.Equal(t, 50, total.TotalTokens)
	assert.Equal(t, 50, successful)
}

func TestUsage_AddIsAdditive(t *testing.T) {
	u := Usage{PromptTokens: 1, CompletionTokens: 2, CachedPromptTokens: 1, TotalTokens: 3}
	u.Add(Usage{PromptTokens: 4, CompletionTokens: 5, CachedPromptTokens: 2, TotalTokens: 9})
	assert.Equal(t, Usage{PromptTokens: 5, CompletionTokens: 7, CachedPromptTokens: 3, TotalTokens: 12}, u)
}
