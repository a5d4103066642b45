package reactive

import "context"

type listenerKey struct{}

// WithListener returns a copy of ctx in which l is the active computation.
// Dependencies read through the returned context register l.
func WithListener(ctx context.Context, l Listener) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, listenerKey{}, l)
}

// ListenerFrom returns the active computation carried by ctx, or nil if
// there is none.
func ListenerFrom(ctx context.Context) Listener {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(listenerKey{}).(Listener)
	return l
}

// Untracked returns a copy of ctx with no active computation, so reads made
// through it do not create subscriptions.
func Untracked(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, listenerKey{}, nil)
}
