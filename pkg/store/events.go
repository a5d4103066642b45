package store

import (
	"sync"
	"time"
)

// EventKind describes what happened to a key.
type EventKind string

const (
	// EventSet is emitted when Set stores a new value.
	EventSet EventKind = "set"

	// EventRerun is emitted when dependents are re-run without a value change.
	EventRerun EventKind = "rerun"

	// EventUnset is emitted when a key is deleted.
	EventUnset EventKind = "unset"
)

// Event reports a change to the store. Events are delivered after the
// change is applied and outside the store lock.
type Event struct {
	Kind EventKind `json:"kind"`
	Key  Key       `json:"key"`

	// Value is the new value for EventSet and nil otherwise.
	Value any `json:"value,omitempty"`

	// Notified is the number of dependents notified.
	Notified int `json:"notified"`

	At time.Time `json:"at"`
}

// feed fans events out to subscribers.
type feed struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]func(Event)
}

func (f *feed) subscribe(fn func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs == nil {
		f.subs = make(map[uint64]func(Event))
	}
	f.next++
	id := f.next
	f.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *feed) publish(ev Event) {
	f.mu.RLock()
	if len(f.subs) == 0 {
		f.mu.RUnlock()
		return
	}
	subs := make([]func(Event), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
