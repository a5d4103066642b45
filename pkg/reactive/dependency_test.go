package reactive

import (
	"context"
	"sync"
	"testing"
)

// testListener is a simple Listener implementation for testing.
type testListener struct {
	id         uint64
	dirtyCount int
	mu         sync.Mutex
}

func newTestListener() *testListener {
	return &testListener{id: NextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	l.dirtyCount++
	l.mu.Unlock()
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyCount
}

func TestDependencyDependWithoutListener(t *testing.T) {
	d := NewDependency()

	if d.Depend(context.Background()) {
		t.Error("Depend should report false with no active listener")
	}
	if d.Len() != 0 {
		t.Errorf("expected 0 dependents, got %d", d.Len())
	}
	if n := d.Changed(); n != 0 {
		t.Errorf("Changed with no dependents notified %d", n)
	}
}

func TestDependencyDependIsIdempotent(t *testing.T) {
	d := NewDependency()
	l := newTestListener()
	ctx := WithListener(context.Background(), l)

	d.Depend(ctx)
	d.Depend(ctx)
	d.Depend(ctx)

	if d.Len() != 1 {
		t.Fatalf("expected 1 dependent, got %d", d.Len())
	}

	d.Changed()
	if l.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", l.getDirtyCount())
	}
}

func TestDependencyChangedClearsRegistrations(t *testing.T) {
	d := NewDependency()
	a := newTestListener()
	b := newTestListener()

	d.Depend(WithListener(context.Background(), a))
	d.Depend(WithListener(context.Background(), b))

	if n := d.Changed(); n != 2 {
		t.Errorf("expected 2 notified, got %d", n)
	}
	if d.Len() != 0 {
		t.Errorf("registrations should be cleared after Changed, got %d", d.Len())
	}

	// A second round without re-registration notifies nobody.
	d.Changed()
	if a.getDirtyCount() != 1 || b.getDirtyCount() != 1 {
		t.Errorf("expected exactly one notification each, got a=%d b=%d",
			a.getDirtyCount(), b.getDirtyCount())
	}
}

func TestDependencyUntracked(t *testing.T) {
	d := NewDependency()
	l := newTestListener()
	ctx := Untracked(WithListener(context.Background(), l))

	if ListenerFrom(ctx) != nil {
		t.Fatal("Untracked should clear the active listener")
	}
	if d.Depend(ctx) {
		t.Error("Depend through an untracked context should not register")
	}
}

func TestDependencyConcurrentDepend(t *testing.T) {
	d := NewDependency()
	listeners := make([]*testListener, 50)
	for i := range listeners {
		listeners[i] = newTestListener()
	}

	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l *testListener) {
			defer wg.Done()
			d.Depend(WithListener(context.Background(), l))
		}(l)
	}
	wg.Wait()

	if d.Len() != len(listeners) {
		t.Errorf("expected %d dependents, got %d", len(listeners), d.Len())
	}
}

func TestListenerFromNilContext(t *testing.T) {
	if ListenerFrom(nil) != nil {
		t.Error("nil context should carry no listener")
	}
}
