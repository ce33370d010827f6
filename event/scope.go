package event

import "context"

// Registry of scope classifications, keyed by event Type. Producers call
// RegisterOpen/RegisterClose/RegisterNeutral once at init time (the agent,
// tools, task and crew packages each register their lifecycle events via
// their RegisterScopes functions) before any Emit of that type.
type scopeTable struct {
	entries map[Type]classification
}

func newScopeTable() *scopeTable {
	return &scopeTable{entries: make(map[Type]classification)}
}

// RegisterOpen declares typ as a scope-opening event of category whose
// matching close event is closeTyp.
func (b *Bus) RegisterOpen(typ Type, category Category, closeTyp Type) {
	b.scopeMu.Lock()
	defer b.scopeMu.Unlock()
	b.scopes.entries[typ] = classification{scope: ScopeOpen, category: category, partner: closeTyp}
}

// RegisterClose declares typ as the scope-closing partner for an opener.
func (b *Bus) RegisterClose(typ Type, category Category) {
	b.scopeMu.Lock()
	defer b.scopeMu.Unlock()
	b.scopes.entries[typ] = classification{scope: ScopeClose, category: category}
}

// RegisterNeutral declares typ as neither opening nor closing a scope; it
// simply inherits whatever scope is currently on top of the stack as its
// ParentEventID.
func (b *Bus) RegisterNeutral(typ Type, category Category) {
	b.scopeMu.Lock()
	defer b.scopeMu.Unlock()
	b.scopes.entries[typ] = classification{scope: ScopeNeutral, category: category}
}

func (b *Bus) classify(typ Type) classification {
	b.scopeMu.RLock()
	defer b.scopeMu.RUnlock()
	if c, ok := b.scopes.entries[typ]; ok {
		return c
	}
	return classification{scope: ScopeNeutral}
}

// frame is one entry on the logical scope stack.
type frame struct {
	eventID string
	typ     Type
}

// chainState is the per-logical-chain state threaded through context.Context.
// It carries the scope stack (for ParentEventID), the last emitted event on
// this chain (for PreviousEventID), and an optional causal guard event (for
// TriggeredByEventID).
type chainState struct {
	stack       []frame
	lastEventID string
	triggeredBy string
}

type chainStateKey struct{}

// WithChain seeds ctx with a fresh, empty scope chain. Crew.Kickoff and
// top-level test harnesses call this once; everything downstream threads
// the returned context through Emit calls to stay on the same chain.
func WithChain(ctx context.Context) context.Context {
	return context.WithValue(ctx, chainStateKey{}, &chainState{})
}

func chainFrom(ctx context.Context) *chainState {
	if cs, ok := ctx.Value(chainStateKey{}).(*chainState); ok {
		return cs
	}
	// No chain seeded: behave as a fresh, isolated chain rather than panic.
	return &chainState{}
}

// WithTrigger returns a context whose next Emit on this chain records
// triggeringEventID as TriggeredByEventID, for marking an explicit causal
// hop (e.g. "this tool call was triggered by that agent step"). The guard is
// consumed by the next Emit call, mirroring the RAII guard in spec.md §4.1.
func WithTrigger(ctx context.Context, triggeringEventID string) context.Context {
	cs := chainFrom(ctx)
	cp := *cs
	cp.stack = append([]frame(nil), cs.stack...)
	cp.triggeredBy = triggeringEventID
	return context.WithValue(ctx, chainStateKey{}, &cp)
}
