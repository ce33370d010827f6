package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kadirpekel/crewcore/tools"
)

// entry is one saved value in an InMemoryStore.
type entry struct {
	content  string
	metadata map[string]any
	savedAt  time.Time
}

// InMemoryStore is the reference backend for the short-term, entity, and
// external kinds, per spec.md §4.7 ("the core does not mandate a specific
// backend per kind; a simple in-process store satisfies the contract").
// Relevance is scored with tools.LCSSimilarity against the query, the same
// fuzzy-match primitive the tool registry uses for tool-name selection.
type InMemoryStore struct {
	kind Kind

	mu      sync.Mutex
	entries []entry
	cap     int // 0 means unbounded
}

// NewInMemoryStore builds a store for kind. capHint bounds retained entries
// (oldest evicted first) to model short-term memory's bounded window; pass
// 0 for unbounded retention (entity/external).
func NewInMemoryStore(kind Kind, capHint int) *InMemoryStore {
	return &InMemoryStore{kind: kind, cap: capHint}
}

func (s *InMemoryStore) Kind() Kind { return s.kind }

func (s *InMemoryStore) Save(ctx context.Context, value string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{content: value, metadata: metadata, savedAt: time.Now()})
	if s.cap > 0 && len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	return nil
}

func (s *InMemoryStore) Search(ctx context.Context, query string, limit int, scoreThreshold float64) ([]Result, error) {
	s.mu.Lock()
	snapshot := make([]entry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	var results []Result
	for _, e := range snapshot {
		score := tools.LCSSimilarity(query, e.content)
		if score < scoreThreshold {
			continue
		}
		results = append(results, Result{Content: e.content, Score: score, Metadata: e.metadata})
	}
	sortByScoreDesc(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func sortByScoreDesc(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
