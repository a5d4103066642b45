package reactive

import (
	"context"
	"sync"
)

// Dependency tracks the computations that read one value.
//
// Depend registers the computation carried by a context; Changed notifies
// every registered computation and clears the list. Computations register
// again when they re-run.
type Dependency struct {
	id uint64

	// subs are the listeners registered since the last Changed.
	subs []Listener

	// mu protects subs.
	mu sync.Mutex
}

// NewDependency allocates a fresh tracker with no dependents.
func NewDependency() *Dependency {
	return &Dependency{id: NextID()}
}

// ID returns the unique identifier for this dependency.
func (d *Dependency) ID() uint64 {
	return d.id
}

// Depend registers the active computation in ctx as a dependent.
// It reports whether a computation was registered; with no active
// computation it does nothing and returns false.
func (d *Dependency) Depend(ctx context.Context) bool {
	l := ListenerFrom(ctx)
	if l == nil {
		return false
	}
	d.subscribe(l)

	// Effects remember their sources so a re-run can drop stale registrations.
	if s, ok := l.(sourceTracker); ok {
		s.addSource(d)
	}
	return true
}

// Changed notifies every registered dependent, then clears the registrations.
// Listeners are snapshotted under the lock and notified after releasing it.
// Returns the number of dependents notified.
func (d *Dependency) Changed() int {
	d.mu.Lock()
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, sub := range subs {
		sub.MarkDirty()
	}
	return len(subs)
}

// Len returns the number of currently registered dependents.
func (d *Dependency) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// subscribe adds a listener, deduplicating by listener ID.
func (d *Dependency) subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lid := l.ID()
	for _, existing := range d.subs {
		if existing.ID() == lid {
			return
		}
	}
	d.subs = append(d.subs, l)
}

// unsubscribe removes a listener if it is registered.
func (d *Dependency) unsubscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lid := l.ID()
	for i, existing := range d.subs {
		if existing.ID() == lid {
			// Order doesn't matter, swap with last.
			d.subs[i] = d.subs[len(d.subs)-1]
			d.subs = d.subs[:len(d.subs)-1]
			return
		}
	}
}

// sourceTracker is implemented by listeners that record what they read.
type sourceTracker interface {
	addSource(d *Dependency)
}
