package llms

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Aggregator accumulates Usage across every call made during a crew
// kickoff, satisfying the invariant from spec.md §8:
// sum(task_outputs.usage) == crew_output.usage. A zero-value Aggregator is
// ready to use; it is safe for concurrent Add calls from parallel agents.
type Aggregator struct {
	mu                 sync.Mutex
	total              Usage
	successfulRequests int
}

// Add folds u into the running total and increments the successful-request
// counter.
func (a *Aggregator) Add(u Usage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Add(u)
	a.successfulRequests++
}

// Totals returns the current accumulated usage and request count.
func (a *Aggregator) Totals() (Usage, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total, a.successfulRequests
}

// encodingCache avoids re-building a tiktoken encoding per call; encodings
// are expensive to construct and safe to share once built.
var (
	encodingMu    sync.Mutex
	encodingCache = map[string]*tiktoken.Tiktoken{}
)

// CountTokens estimates the token count of text for model using tiktoken-go.
// When model isn't recognized it falls back to the cl100k_base encoding, the
// same fallback the teacher's token counter uses for unknown OpenAI-style
// model names.
func CountTokens(model, text string) (int, error) {
	enc, err := encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	encodingMu.Lock()
	defer encodingMu.Unlock()
	if enc, ok := encodingCache[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	encodingCache[model] = enc
	return enc, nil
}

// CountMessageTokens sums CountTokens over every message's content, used to
// estimate a prompt's size before calling GetUsableContextWindowSize.
func CountMessageTokens(model string, messages []Message) (int, error) {
	total := 0
	for _, m := range messages {
		n, err := CountTokens(model, m.Content)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
