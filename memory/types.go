// Package memory implements the Memory / Context Aggregator from spec.md
// §4.7 (C7): pluggable save/search stores across four memory kinds,
// parallel fan-out context building, and a SQLite-backed reference
// long-term store. Grounded on the teacher's pkg/memory package
// (MemoryService/SessionService split, session_service_sql.go), adapted
// from its conversation-history domain to spec.md's generic
// save(value, metadata) / search(query, limit, threshold) contract.
package memory

import "context"

// Kind enumerates the four memory kinds from spec.md §4.7.
type Kind string

const (
	KindShortTerm Kind = "short_term"
	KindLongTerm  Kind = "long_term"
	KindEntity    Kind = "entity"
	KindExternal  Kind = "external"
)

// sectionLabel is the labeled heading spec.md §4.7 assigns each kind's
// context section.
func (k Kind) sectionLabel() string {
	switch k {
	case KindShortTerm:
		return "Recent Insights"
	case KindLongTerm:
		return "Historical Data"
	case KindEntity:
		return "Entities"
	case KindExternal:
		return "External"
	default:
		return string(k)
	}
}

// Result is a single search hit, per spec.md §4.7.
type Result struct {
	Content  string
	Score    float64
	Metadata map[string]any
}

// Store is the collaborator contract for a single memory kind's backend,
// per spec.md §4.7 ("Storage backends are pluggable behind a single
// interface; the core does not mandate vector vs SQL"). Save/Search are
// the synchronous form; AsyncSave/AsyncSearch (below) are generic
// goroutine-backed wrappers over any Store, the same way llms.Provider's
// ACall wraps a synchronous Call.
type Store interface {
	Kind() Kind
	Save(ctx context.Context, value string, metadata map[string]any) error
	Search(ctx context.Context, query string, limit int, scoreThreshold float64) ([]Result, error)
}

// AsyncSaveResult is delivered on the channel returned by AsyncSave.
type AsyncSaveResult struct{ Err error }

// AsyncSearchResult is delivered on the channel returned by AsyncSearch.
type AsyncSearchResult struct {
	Results []Result
	Err     error
}

// AsyncSave runs store.Save on a goroutine, per spec.md §4.7 ("each with a
// sync and async form").
func AsyncSave(ctx context.Context, store Store, value string, metadata map[string]any) <-chan AsyncSaveResult {
	ch := make(chan AsyncSaveResult, 1)
	go func() {
		ch <- AsyncSaveResult{Err: store.Save(ctx, value, metadata)}
	}()
	return ch
}

// AsyncSearch runs store.Search on a goroutine.
func AsyncSearch(ctx context.Context, store Store, query string, limit int, scoreThreshold float64) <-chan AsyncSearchResult {
	ch := make(chan AsyncSearchResult, 1)
	go func() {
		results, err := store.Search(ctx, query, limit, scoreThreshold)
		ch <- AsyncSearchResult{Results: results, Err: err}
	}()
	return ch
}
