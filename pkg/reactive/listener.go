package reactive

// Listener is anything that can be notified when a dependency changes.
// Effects implement it; tests and adapters can supply their own.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	// For effects, this schedules the effect to re-run.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used to deduplicate registrations and batched notifications.
	ID() uint64
}

// Cleanup is a function returned by effects to release resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc struct {
	id uint64
	fn func()
}

// NewListenerFunc wraps fn as a Listener with a fresh ID.
func NewListenerFunc(fn func()) *ListenerFunc {
	return &ListenerFunc{id: NextID(), fn: fn}
}

// MarkDirty calls the wrapped function.
func (l *ListenerFunc) MarkDirty() {
	if l.fn != nil {
		l.fn()
	}
}

// ID returns the listener's unique identifier.
func (l *ListenerFunc) ID() uint64 {
	return l.id
}
