package store

import "context"

// GetAs reads a value like Store.Lookup and asserts it to T. It reports
// false if nothing is stored or the stored value is not a T.
//
// Example:
//
//	open, _ := store.GetAs[bool](ctx, st, card, "tvguide->expanded")
func GetAs[T any](ctx context.Context, s *Store, id any, propertyName string, opts ...CallOption) (T, bool) {
	v, ok := s.Lookup(ctx, id, propertyName, opts...)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
