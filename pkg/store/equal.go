package store

import "reflect"

// Equaler is implemented by values that define their own equality.
// Set uses it in preference to the built-in comparison.
type Equaler interface {
	Equal(other any) bool
}

// Equal reports whether a stored value and a new value are the same for the
// purpose of change detection.
//
// Structured values (maps, slices, arrays, structs, pointers) are compared
// deeply with reflect.DeepEqual. Everything else is compared with ==.
// Values that cannot be compared, such as functions, are never equal, so
// setting them always counts as a change.
func Equal(a, b any) bool {
	if eq, ok := b.(Equaler); ok {
		return eq.Equal(a)
	}
	if isStructured(b) || isStructured(a) {
		return reflect.DeepEqual(a, b)
	}
	return scalarEqual(a, b)
}

// isStructured reports whether v is compared deeply.
func isStructured(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		return true
	default:
		return false
	}
}

// scalarEqual compares two non-structured values by identity.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}
