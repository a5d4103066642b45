package store

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/templatestore/pkg/reactive"
)

// Rerun is the sentinel value that makes Set re-run the dependents of a key
// without storing anything. It cannot be stored as an ordinary value.
const Rerun = "rerun"

// entry is one stored value together with the pair it was derived from.
type entry struct {
	value    any
	scope    string
	property string
}

// Store associates keys with values and re-runs the computations that read
// a key when its value changes.
//
// A Store is safe for concurrent use. Both tables are guarded by one mutex,
// and dependents are notified after the mutex is released, so a computation
// re-run by a notification observes the updated table.
type Store struct {
	mu     sync.Mutex
	values map[Key]entry
	deps   map[Key]*reactive.Dependency

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics
	events  feed
	now     func() time.Time
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		values: make(map[Key]entry),
		deps:   make(map[Key]*reactive.Dependency),
		logger: slog.Default(),
		tracer: defaultTracer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored for propertyName in the scope selected by id,
// or nil if nothing is stored.
//
// Unless Reactive(false) is passed, the computation active in ctx (if any)
// is registered as a dependent of the key and will re-run when it changes.
// Get creates the key's tracker even if no value exists yet.
func (s *Store) Get(ctx context.Context, id any, propertyName string, opts ...CallOption) any {
	v, _ := s.Lookup(ctx, id, propertyName, opts...)
	return v
}

// Lookup is like Get but also reports whether a value is stored.
func (s *Store) Lookup(ctx context.Context, id any, propertyName string, opts ...CallOption) (any, bool) {
	key, _ := s.resolve(id, propertyName)
	track := resolveReactive(true, opts)

	s.mu.Lock()
	dep := s.ensureDep(key)
	e, ok := s.values[key]
	if track {
		// Registered under the lock so a concurrent Set cannot slip
		// between the read and the registration.
		dep.Depend(ctx)
	}
	s.recordSizes()
	s.mu.Unlock()

	s.metrics.op("get")
	return e.value, ok
}

// Set stores value for propertyName in the scope selected by id.
//
// If value equals the stored value nothing happens. Maps, slices, arrays,
// structs and pointers are compared deeply; other values by identity (see
// Equal). Otherwise the value is stored and, unless Reactive(false) is
// passed, the key's dependents are notified.
//
// Setting Rerun notifies the dependents and leaves the stored value alone.
func (s *Store) Set(ctx context.Context, id any, propertyName string, value any, opts ...CallOption) {
	if str, ok := value.(string); ok && str == Rerun {
		s.ForceRerun(ctx, id, propertyName)
		return
	}

	key, scope := s.resolve(id, propertyName)
	notify := resolveReactive(true, opts)

	ctx, span := s.tracer.Start(orBackground(ctx), "store.Set", trace.WithAttributes(
		attribute.String("store.key", string(key)),
	))
	defer span.End()
	s.metrics.op("set")

	s.mu.Lock()
	dep := s.ensureDep(key)
	if old, ok := s.values[key]; ok && Equal(old.value, value) {
		s.mu.Unlock()
		span.SetAttributes(attribute.Bool("store.changed", false))
		return
	}
	s.values[key] = entry{value: value, scope: scope, property: propertyName}
	s.recordSizes()
	s.mu.Unlock()

	n := 0
	if notify {
		n = dep.Changed()
		s.metrics.notified("set", n)
	}
	span.SetAttributes(
		attribute.Bool("store.changed", true),
		attribute.Int("store.notified", n),
	)
	s.logger.DebugContext(ctx, "store: value changed",
		"key", key,
		"notified", n,
	)
	s.events.publish(Event{Kind: EventSet, Key: key, Value: value, Notified: n, At: s.now()})
}

// ForceRerun notifies the dependents of a key without changing its value.
// It is equivalent to Set(ctx, id, propertyName, Rerun).
func (s *Store) ForceRerun(ctx context.Context, id any, propertyName string) {
	key, _ := s.resolve(id, propertyName)

	ctx, span := s.tracer.Start(orBackground(ctx), "store.Rerun", trace.WithAttributes(
		attribute.String("store.key", string(key)),
	))
	defer span.End()
	s.metrics.op("rerun")

	s.mu.Lock()
	dep := s.ensureDep(key)
	s.recordSizes()
	s.mu.Unlock()

	n := dep.Changed()
	s.metrics.notified("rerun", n)
	span.SetAttributes(attribute.Int("store.notified", n))
	s.logger.DebugContext(ctx, "store: forced rerun",
		"key", key,
		"notified", n,
	)
	s.events.publish(Event{Kind: EventRerun, Key: key, Notified: n, At: s.now()})
}

// Unset deletes the value and the tracker for propertyName in the scope
// selected by id. Unsetting a key that does not exist does nothing.
//
// Deletion is silent by default. With Reactive(true), the key's dependents
// are notified of the removal; when they re-run, the key reads as absent
// and they register on a fresh tracker.
func (s *Store) Unset(ctx context.Context, id any, propertyName string, opts ...CallOption) {
	key, _ := s.resolve(id, propertyName)
	notify := resolveReactive(false, opts)

	ctx, span := s.tracer.Start(orBackground(ctx), "store.Unset", trace.WithAttributes(
		attribute.String("store.key", string(key)),
	))
	defer span.End()
	s.metrics.op("unset")

	s.mu.Lock()
	dep, tracked := s.deps[key]
	_, had := s.values[key]
	delete(s.values, key)
	delete(s.deps, key)
	s.recordSizes()
	s.mu.Unlock()

	if !tracked && !had {
		return
	}

	n := 0
	if notify && dep != nil {
		n = dep.Changed()
		s.metrics.notified("unset", n)
	}
	span.SetAttributes(attribute.Int("store.notified", n))
	s.events.publish(Event{Kind: EventUnset, Key: key, Notified: n, At: s.now()})
}

// UnsetAll deletes every stored key whose text contains fragment, in any
// scope, and returns how many keys were removed.
//
// Matching is by substring of the whole key, so a fragment can also match
// part of a scope or a longer property name: "prop" removes "a_prop" and
// "a_propX" alike. Use UnsetProperty to remove one exact property.
// Only keys holding a value are considered. Reactive(true) notifies
// dependents as for Unset.
func (s *Store) UnsetAll(ctx context.Context, fragment string, opts ...CallOption) int {
	ctx, span := s.tracer.Start(orBackground(ctx), "store.UnsetAll", trace.WithAttributes(
		attribute.String("store.fragment", fragment),
	))
	defer span.End()
	s.metrics.op("unset_all")

	n := s.unsetMatching(ctx, resolveReactive(false, opts), func(key Key, _ entry) bool {
		return strings.Contains(string(key), fragment)
	})
	span.SetAttributes(attribute.Int("store.removed", n))
	return n
}

// UnsetProperty deletes propertyName from every scope and returns how many
// keys were removed. Unlike UnsetAll, only keys whose property is exactly
// propertyName match.
func (s *Store) UnsetProperty(ctx context.Context, propertyName string, opts ...CallOption) int {
	ctx, span := s.tracer.Start(orBackground(ctx), "store.UnsetProperty", trace.WithAttributes(
		attribute.String("store.property", propertyName),
	))
	defer span.End()
	s.metrics.op("unset_property")

	n := s.unsetMatching(ctx, resolveReactive(false, opts), func(_ Key, e entry) bool {
		return e.property == propertyName
	})
	span.SetAttributes(attribute.Int("store.removed", n))
	return n
}

// unsetMatching removes every stored key accepted by match, then notifies
// the removed trackers if notify is set.
func (s *Store) unsetMatching(ctx context.Context, notify bool, match func(Key, entry) bool) int {
	type removed struct {
		key Key
		dep *reactive.Dependency
	}

	s.mu.Lock()
	var gone []removed
	for key, e := range s.values {
		if !match(key, e) {
			continue
		}
		gone = append(gone, removed{key: key, dep: s.deps[key]})
		delete(s.values, key)
		delete(s.deps, key)
	}
	s.recordSizes()
	s.mu.Unlock()

	if len(gone) == 0 {
		return 0
	}

	// Map iteration order is random; notify in key order.
	sort.Slice(gone, func(i, j int) bool { return gone[i].key < gone[j].key })

	for _, r := range gone {
		n := 0
		if notify && r.dep != nil {
			n = r.dep.Changed()
			s.metrics.notified("unset", n)
		}
		s.events.publish(Event{Kind: EventUnset, Key: r.key, Notified: n, At: s.now()})
	}

	s.logger.DebugContext(ctx, "store: removed keys",
		"count", len(gone),
		"notify", notify,
	)
	return len(gone)
}

// Has reports whether a value is stored, without registering a dependency
// or creating a tracker.
func (s *Store) Has(id any, propertyName string) bool {
	key, _ := s.resolve(id, propertyName)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// Tracked reports whether the key has a dependency tracker. A key can be
// tracked without holding a value when it was read before being set.
func (s *Store) Tracked(id any, propertyName string) bool {
	key, _ := s.resolve(id, propertyName)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.deps[key]
	return ok
}

// DependentCount returns the number of computations currently registered
// on the key.
func (s *Store) DependentCount(id any, propertyName string) int {
	key, _ := s.resolve(id, propertyName)
	return s.Dependents(key)
}

// Dependents returns the number of computations registered on a key.
func (s *Store) Dependents(key Key) int {
	s.mu.Lock()
	dep := s.deps[key]
	s.mu.Unlock()
	if dep == nil {
		return 0
	}
	return dep.Len()
}

// Peek returns the value stored under a key without any tracking.
func (s *Store) Peek(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[key]
	return e.value, ok
}

// Len returns the number of keys holding a value.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Keys returns the keys holding a value, sorted.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Snapshot returns a copy of the value table. Values themselves are not
// copied.
func (s *Store) Snapshot() map[Key]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Key]any, len(s.values))
	for k, e := range s.values {
		out[k] = e.value
	}
	return out
}

// Subscribe registers fn to receive an Event after every change, forced
// rerun and deletion. The returned function cancels the subscription.
// fn runs on the goroutine that changed the store and must not block.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	return s.events.subscribe(fn)
}

// resolve derives the key and scope for a pair.
func (s *Store) resolve(id any, propertyName string) (Key, string) {
	scope := ResolveScope(id)
	return Key(scope + KeySeparator + propertyName), scope
}

// ensureDep returns the key's tracker, creating it on first use.
// Must be called with s.mu held.
func (s *Store) ensureDep(key Key) *reactive.Dependency {
	dep, ok := s.deps[key]
	if !ok {
		dep = reactive.NewDependency()
		s.deps[key] = dep
	}
	return dep
}

// recordSizes updates the size gauges. Must be called with s.mu held.
func (s *Store) recordSizes() {
	s.metrics.sizes(len(s.values), len(s.deps))
}

// orBackground substitutes context.Background for a nil context.
func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
