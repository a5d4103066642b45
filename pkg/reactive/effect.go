package reactive

import (
	"context"
	"sync"
	"sync/atomic"
)

// Effect is a reactive computation that re-runs when a dependency it read
// during its last run changes.
//
// Effects run once when created. Each run receives a context carrying the
// effect as the active listener; reads made through that context register
// the effect. If fn returns a Cleanup, it is called before the next run and
// on Dispose.
type Effect struct {
	id   uint64
	name string

	fn    func(ctx context.Context) Cleanup
	base  context.Context
	sched *Scheduler

	// cleanup is the cleanup function from the last run.
	cleanup Cleanup

	// sources are the dependencies this effect registered with.
	sources   []*Dependency
	sourcesMu sync.Mutex

	// pending indicates the effect is queued on its scheduler.
	pending atomic.Bool

	// disposed indicates the effect has been disposed.
	disposed atomic.Bool

	runs atomic.Int64
}

// EffectOption configures an Effect.
type EffectOption func(*Effect)

// EffectName sets a name used in log output.
func EffectName(name string) EffectOption {
	return func(e *Effect) {
		e.name = name
	}
}

// NewEffect creates an effect on sched and runs it immediately.
// A nil scheduler gets a private Immediate scheduler.
//
// Example:
//
//	reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
//	    fmt.Println("count:", st.Get(ctx, nil, "counter->value"))
//	    return nil
//	})
func NewEffect(ctx context.Context, sched *Scheduler, fn func(ctx context.Context) Cleanup, opts ...EffectOption) *Effect {
	if ctx == nil {
		ctx = context.Background()
	}
	if sched == nil {
		sched = NewScheduler(Immediate)
	}

	e := &Effect{
		id:    NextID(),
		fn:    fn,
		base:  ctx,
		sched: sched,
	}
	for _, opt := range opts {
		opt(e)
	}

	sched.runNow(e)
	return e
}

// MarkDirty queues the effect for a re-run. Implements Listener.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}

	// Only queue once per round. An effect left queued by a spent run
	// budget is still drained when notified again.
	if e.pending.CompareAndSwap(false, true) {
		e.sched.schedule(e)
		return
	}
	e.sched.drainIdle()
}

// ID returns the unique identifier for this effect. Implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// Name returns the name set with EffectName.
func (e *Effect) Name() string {
	return e.name
}

// Runs returns how many times the effect has run.
func (e *Effect) Runs() int64 {
	return e.runs.Load()
}

// Disposed reports whether Dispose has been called.
func (e *Effect) Disposed() bool {
	return e.disposed.Load()
}

// Dispose runs the last cleanup and unregisters the effect from all sources.
// A disposed effect never runs again.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.dropSources()
}

// run executes the effect function with the effect as the active listener.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	// Registrations from the previous run are stale; fn re-registers.
	e.dropSources()

	e.runs.Add(1)
	if e.sched.logger.Enabled(e.base, levelTrace) {
		e.sched.logger.Log(e.base, levelTrace, "reactive: effect run",
			"effect", e.id,
			"name", e.name,
			"run", e.runs.Load(),
		)
	}

	e.cleanup = e.fn(WithListener(e.base, e))
}

// addSource records a dependency the effect registered with.
func (e *Effect) addSource(d *Dependency) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == d {
			return
		}
	}
	e.sources = append(e.sources, d)
}

// dropSources unregisters the effect from every recorded dependency.
func (e *Effect) dropSources() {
	e.sourcesMu.Lock()
	sources := e.sources
	e.sources = nil
	e.sourcesMu.Unlock()

	for _, s := range sources {
		s.unsubscribe(e)
	}
}
