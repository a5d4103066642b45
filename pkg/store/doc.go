// Package store is a fine-grained reactive key-value store.
//
// Values are addressed by a scope identifier and a property name. Reading a
// value with Get inside a reactive computation registers that computation
// on the value's key; writing a different value with Set re-runs exactly the
// computations registered on that key.
//
// Usage:
//
//	st := store.New()
//
//	// Producer
//	st.Set(ctx, card, "tvguide->expanded", true)
//
//	// Consumer, inside a reactive.Effect
//	expanded, _ := st.Get(ctx, card, "tvguide->expanded").(bool)
//
// The identifier selects the scope. A nil or zero identifier selects the
// shared "default" scope, strings and numbers are used directly, and
// objects are asked for their id (see ResolveKey).
//
// Setting the value Rerun ("rerun") re-runs the dependents of a key without
// storing anything. Consequently "rerun" cannot be stored as an ordinary
// value.
package store
