package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Handler observes an emitted event. source is the opaque reference the
// producer passed to Emit; ev is a read-only view of the event itself.
type Handler func(ctx context.Context, ev *Event, source any)

// DefaultWorkers is the size of the bus's dedicated dispatch pool, per
// spec.md §4.1 ("a small constant, e.g. 2").
const DefaultWorkers = 2

type registration struct {
	name    string
	handler Handler
	after   []string
}

// Bus is a typed publish/subscribe dispatcher with dependency-ordered
// handler execution and hierarchical scope tracking. A Bus is safe for
// concurrent use. By convention a process keeps one Bus, but nothing
// prevents constructing one per test.
type Bus struct {
	log hclog.Logger

	mu       sync.RWMutex
	handlers map[Type][]registration
	schedule map[Type][][]registration // cached level-wise schedule, invalidated on (Un)Register

	scopeMu sync.RWMutex
	scopes  *scopeTable

	jobs    chan dispatchJob
	wg      sync.WaitGroup // outstanding dispatched jobs, for Flush
	seq     uint64         // monotonic emission_sequence, process-wide
	closeCh chan struct{}
	closed  atomic.Bool
}

type dispatchJob struct {
	ctx     context.Context
	ev      *Event
	src     any
	reg     registration
	levelWG *sync.WaitGroup
}

// New creates a Bus with a dispatch pool of DefaultWorkers goroutines.
func New(log hclog.Logger) *Bus {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	b := &Bus{
		log:      log.Named("event-bus"),
		handlers: make(map[Type][]registration),
		schedule: make(map[Type][][]registration),
		scopes:   newScopeTable(),
		jobs:     make(chan dispatchJob, 256),
		closeCh:  make(chan struct{}),
	}
	for i := 0; i < DefaultWorkers; i++ {
		go b.worker()
	}
	return b
}

func (b *Bus) worker() {
	for job := range b.jobs {
		b.runHandler(job)
	}
}

func (b *Bus) runHandler(job dispatchJob) {
	defer b.wg.Done()
	defer job.levelWG.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panicked", "handler", job.reg.name, "event_id", job.ev.ID, "event_type", job.ev.Type, "panic", r)
		}
	}()
	job.reg.handler(job.ctx, job.ev, job.src)
}

// Register adds a handler under name for events of typ. after names other
// handlers (for the same typ) that must complete before this one runs; a
// cycle among after-declarations is reported by ValidateDependencies, not
// here (registration never fails, so config can be built up incrementally).
func (b *Bus) Register(typ Type, name string, after []string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[typ] = append(b.handlers[typ], registration{name: name, handler: h, after: after})
	delete(b.schedule, typ) // invalidate cached schedule
}

// Unregister removes the named handler for typ, if present.
func (b *Bus) Unregister(typ Type, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[typ]
	for i, r := range regs {
		if r.name == name {
			b.handlers[typ] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	delete(b.schedule, typ)
}

// ValidateDependencies reports a *Error if any event type's "after"
// declarations form a cycle. Call this once handler registration is
// complete (e.g. at crew construction) to fail fast on misconfiguration,
// per spec.md §4.1 ("reported at registration-validation time as a fatal
// configuration error").
func (b *Bus) ValidateDependencies() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for typ, regs := range b.handlers {
		if _, err := levelSchedule(regs); err != nil {
			return newError("ValidateDependencies", fmt.Sprintf("event type %q", typ), err)
		}
	}
	return nil
}

// levelSchedule computes a level-wise topological schedule from "after"
// declarations: level 0 handlers have no unmet dependency, level 1 depend
// only on level 0, and so on. Same-level handlers may run concurrently.
func levelSchedule(regs []registration) ([][]registration, error) {
	byName := make(map[string]registration, len(regs))
	for _, r := range regs {
		byName[r.name] = r
	}
	level := make(map[string]int, len(regs))
	visiting := make(map[string]bool, len(regs))

	var resolve func(name string) (int, error)
	resolve = func(name string) (int, error) {
		if lv, ok := level[name]; ok {
			return lv, nil
		}
		if visiting[name] {
			return 0, fmt.Errorf("cyclic handler dependency involving %q", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		reg, ok := byName[name]
		if !ok {
			// Dependency on an unregistered handler behaves as level 0.
			level[name] = 0
			return 0, nil
		}
		best := -1
		for _, dep := range reg.after {
			lv, err := resolve(dep)
			if err != nil {
				return 0, err
			}
			if lv > best {
				best = lv
			}
		}
		lv := best + 1
		level[name] = lv
		return lv, nil
	}

	maxLevel := 0
	for _, r := range regs {
		lv, err := resolve(r.name)
		if err != nil {
			return nil, err
		}
		if lv > maxLevel {
			maxLevel = lv
		}
	}

	schedule := make([][]registration, maxLevel+1)
	for _, r := range regs {
		lv := level[r.name]
		schedule[lv] = append(schedule[lv], r)
	}
	return schedule, nil
}

func (b *Bus) scheduleFor(typ Type) ([][]registration, error) {
	b.mu.RLock()
	if s, ok := b.schedule[typ]; ok {
		b.mu.RUnlock()
		return s, nil
	}
	regs := append([]registration(nil), b.handlers[typ]...)
	b.mu.RUnlock()

	if len(regs) == 0 {
		return nil, nil
	}
	s, err := levelSchedule(regs)
	if err != nil {
		return nil, newError("Emit", fmt.Sprintf("event type %q", typ), err)
	}

	b.mu.Lock()
	b.schedule[typ] = s
	b.mu.Unlock()
	return s, nil
}

// Emit publishes ev (whose ID/scope fields are filled in here) for source
// and returns as soon as dispatch has been handed off to the worker pool —
// it never waits on a handler body, per spec.md §4.1/§7 ("dispatch is
// strictly fire-and-forget from the producer's perspective"). The
// level-by-level "after" ordering between handlers of the same event type
// is still honoured, just on the dispatch goroutine rather than the
// caller's.
//
// Emit returns the updated context (carrying the new PreviousEventID /
// scope stack) so the caller can thread it into the next logical step, and
// the populated Event for the caller's own bookkeeping.
func (b *Bus) Emit(ctx context.Context, typ Type, source any, opts ...EmitOption) (context.Context, *Event) {
	cs := chainFrom(ctx)
	cls := b.classify(typ)

	ev := &Event{
		ID:                 NewEventID(),
		Type:               typ,
		Timestamp:          time.Now(),
		Source:             source,
		PreviousEventID:    cs.lastEventID,
		TriggeredByEventID: cs.triggeredBy,
		EmissionSequence:   atomic.AddUint64(&b.seq, 1),
	}
	for _, o := range opts {
		o(ev)
	}

	newStack := append([]frame(nil), cs.stack...)

	switch cls.scope {
	case ScopeOpen:
		if len(newStack) > 0 {
			ev.ParentEventID = newStack[len(newStack)-1].eventID
		}
		newStack = append(newStack, frame{eventID: ev.ID, typ: typ})
	case ScopeClose:
		if len(newStack) == 0 {
			b.log.Warn("scope close with empty stack", "event_type", typ, "event_id", ev.ID)
		} else {
			top := newStack[len(newStack)-1]
			topCls := b.classify(top.typ)
			if topCls.partner != typ {
				b.log.Warn("scope close does not match opener's declared partner",
					"event_type", typ, "expected_partner_of", top.typ, "declared_partner", topCls.partner)
			}
			ev.ParentEventID = top.eventID
			newStack = newStack[:len(newStack)-1]
		}
	default: // ScopeNeutral
		if len(newStack) > 0 {
			ev.ParentEventID = newStack[len(newStack)-1].eventID
		}
	}

	newCtx := context.WithValue(ctx, chainStateKey{}, &chainState{
		stack:       newStack,
		lastEventID: ev.ID,
		triggeredBy: "", // triggered-by guard is consumed by the Emit it was set for
	})

	schedule, err := b.scheduleFor(typ)
	if err != nil {
		b.log.Error("handler schedule error", "event_type", typ, "error", err)
		return newCtx, ev
	}

	totalJobs := 0
	for _, level := range schedule {
		totalJobs += len(level)
	}
	if totalJobs > 0 {
		// Counted synchronously so Flush/Shutdown can't observe a zero
		// WaitGroup before the dispatch goroutine below has registered its
		// jobs.
		b.wg.Add(totalJobs)
		go b.dispatchLevels(newCtx, ev, source, schedule)
	}

	return newCtx, ev
}

// dispatchLevels runs schedule level-by-level on the worker pool, off the
// producer's goroutine: each level's jobs are queued and awaited before the
// next level is queued, honouring "after" ordering, without making Emit's
// caller wait for any of it.
func (b *Bus) dispatchLevels(ctx context.Context, ev *Event, source any, schedule [][]registration) {
	for li, level := range schedule {
		if b.closed.Load() {
			remaining := len(level)
			for _, l := range schedule[li+1:] {
				remaining += len(l)
			}
			for i := 0; i < remaining; i++ {
				b.wg.Done()
			}
			return
		}
		var lvWG sync.WaitGroup
		for _, reg := range level {
			lvWG.Add(1)
			job := dispatchJob{ctx: ctx, ev: ev, src: source, reg: reg, levelWG: &lvWG}
			select {
			case b.jobs <- job:
			case <-b.closeCh:
				b.wg.Done()
				lvWG.Done()
			}
		}
		lvWG.Wait() // this level fully drains before the next level is dispatched
	}
}

// Flush blocks until every dispatched handler task has completed.
func (b *Bus) Flush() {
	b.wg.Wait()
}

// Shutdown stops accepting new handler registrations from taking effect
// and, if wait is true, flushes outstanding dispatch first.
func (b *Bus) Shutdown(wait bool) {
	if wait {
		b.Flush()
	}
	b.mu.Lock()
	b.handlers = make(map[Type][]registration)
	b.schedule = make(map[Type][][]registration)
	b.mu.Unlock()
	if b.closed.CompareAndSwap(false, true) {
		close(b.closeCh)
	}
}

// EmitOption customizes an Event before dispatch.
type EmitOption func(*Event)

func WithTaskID(id string) EmitOption      { return func(e *Event) { e.TaskID = id } }
func WithAgentID(id string) EmitOption     { return func(e *Event) { e.AgentID = id } }
func WithFingerprint(fp string) EmitOption { return func(e *Event) { e.SourceFingerprint = fp } }
func WithSourceType(t string) EmitOption   { return func(e *Event) { e.SourceType = t } }
func WithPayload(p any) EmitOption         { return func(e *Event) { e.Payload = p } }
