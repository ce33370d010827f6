package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/crewcore/task"
)

const (
	defaultTopN      = 5
	defaultThreshold = 0.35
)

// Aggregator fans a single query out across every configured Store
// concurrently, per spec.md §4.7 ("retrieval issues parallel queries
// across configured stores"), keeps each store's top-N results above a
// score threshold, and concatenates them into labeled sections omitting
// empty ones. It satisfies crew.ContextProvider (BuildContext) and
// crew.MemoryWriter (RecordTaskOutput) structurally, matching those
// narrow collaborator interfaces without crew importing this package.
//
// Grounded on the teacher's pkg/memory MemoryService, which fans a query
// out to working/long-term/document services and merges their results;
// here golang.org/x/sync/errgroup replaces its manual WaitGroup+channel
// fan-out.
type Aggregator struct {
	stores    []Store
	topN      int
	threshold float64
}

// NewAggregator builds an Aggregator over stores, queried in the order
// registered for labeled-section ordering (long-term, short-term, entity,
// external — spec.md §4.7's ("Historical Data", "Recent Insights",
// "Entities", "External") order).
func NewAggregator(stores ...Store) *Aggregator {
	return &Aggregator{stores: stores, topN: defaultTopN, threshold: defaultThreshold}
}

// WithTopN overrides the per-store retention count (default 5).
func (a *Aggregator) WithTopN(n int) *Aggregator {
	a.topN = n
	return a
}

// WithThreshold overrides the per-store score threshold (default 0.35).
func (a *Aggregator) WithThreshold(t float64) *Aggregator {
	a.threshold = t
	return a
}

type storeHits struct {
	kind    Kind
	results []Result
}

// BuildContext implements crew.ContextProvider: it queries every store in
// parallel and renders their top hits as labeled sections, per spec.md
// §4.7. A single store's failure leaves its section empty (the error is
// discarded, not logged) rather than failing the whole build, since context
// retrieval is best-effort.
func (a *Aggregator) BuildContext(ctx context.Context, query string) (string, error) {
	if len(a.stores) == 0 {
		return "", nil
	}

	hits := make([]storeHits, len(a.stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, store := range a.stores {
		i, store := i, store
		g.Go(func() error {
			results, err := store.Search(gctx, query, a.topN, a.threshold)
			if err != nil {
				return nil // best-effort: section stays empty
			}
			hits[i] = storeHits{kind: store.Kind(), results: results}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	bySection := make(map[string][]Result)
	var order []string
	for _, h := range hits {
		if len(h.results) == 0 {
			continue
		}
		label := h.kind.sectionLabel()
		if _, seen := bySection[label]; !seen {
			order = append(order, label)
		}
		bySection[label] = append(bySection[label], h.results...)
	}

	var b strings.Builder
	for _, label := range order {
		results := bySection[label]
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
		fmt.Fprintf(&b, "## %s\n", label)
		for _, r := range results {
			fmt.Fprintf(&b, "- %s\n", r.Content)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// RecordTaskOutput implements crew.MemoryWriter: a finished task's output
// is saved into the short-term and entity stores, per spec.md §4.6
// ("short-term and entity memories are updated with the output"). Stores
// of other kinds are left untouched by write-back; long-term/external
// population is the operator's responsibility via direct Save calls.
func (a *Aggregator) RecordTaskOutput(ctx context.Context, agentID string, output task.Output) error {
	metadata := map[string]any{"agent": agentID}

	g, gctx := errgroup.WithContext(ctx)
	for _, store := range a.stores {
		switch store.Kind() {
		case KindShortTerm, KindEntity:
			store := store
			g.Go(func() error { return store.Save(gctx, output.Raw, metadata) })
		}
	}
	return g.Wait()
}
