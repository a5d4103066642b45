package store

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// DefaultScope is the scope used when no identifier is given. Keys in the
// default scope are shared by every caller that omits an identifier.
const DefaultScope = "default"

// KeySeparator joins the scope and the property name in a Key.
const KeySeparator = "_"

// Key identifies one (scope, property) pair in the store.
type Key string

// Scope returns the part of the key before the first separator.
// Scopes that themselves contain the separator cannot be recovered.
func (k Key) Scope() string {
	scope, _, _ := strings.Cut(string(k), KeySeparator)
	return scope
}

// Property returns the part of the key after the first separator.
func (k Key) Property() string {
	_, prop, _ := strings.Cut(string(k), KeySeparator)
	return prop
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// Identified is implemented by values that carry their own store identifier,
// typically a data context with an _id field.
type Identified interface {
	StoreID() string
}

// DataHolder is implemented by wrappers around a data context, such as a
// component instance. The nested data's identifier takes precedence over
// anything on the wrapper itself.
type DataHolder interface {
	Data() any
}

// ResolveKey derives the key for a property in the scope selected by id.
// It is a pure function: equal inputs always produce equal keys.
//
// Property names are opaque; by convention they look like
// "namespace->property". Callers must not rely on the separator "_" inside
// scopes or property names to keep distinct pairs apart.
func ResolveKey(id any, propertyName string) Key {
	return Key(ResolveScope(id) + KeySeparator + propertyName)
}

// ResolveScope returns the scope string for an identifier.
//
// Shapes are checked in this order:
//   - nil, false, "", numeric zero and NaN select DefaultScope
//   - a DataHolder resolves the identifier of its Data(), or its own
//     StoreID() when Data() is empty
//   - an Identified value uses StoreID()
//   - a map[string]any uses the "_id" (or "id") field of its "data" entry,
//     falling back to its own "_id" (or "id") field
//   - strings, numbers and true are formatted directly
//   - a fmt.Stringer uses String()
//   - anything else is formatted with fmt.Sprint
//
// An object whose extracted identifier is empty also selects DefaultScope.
// No identifier is ever rejected.
func ResolveScope(id any) string {
	if isFalsy(id) {
		return DefaultScope
	}

	switch v := id.(type) {
	case DataHolder:
		if data := v.Data(); !isFalsy(data) {
			return ResolveScope(idField(data))
		}
		if self, ok := v.(Identified); ok {
			return ResolveScope(self.StoreID())
		}
		return DefaultScope
	case Identified:
		return ResolveScope(v.StoreID())
	case map[string]any:
		if data, ok := v["data"]; ok && !isFalsy(data) {
			return ResolveScope(idField(data))
		}
		return ResolveScope(idField(v))
	case string:
		return v
	case bool:
		return "true"
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// idField extracts the identifier from a nested data value.
// The result is resolved again by ResolveScope.
func idField(data any) any {
	switch v := data.(type) {
	case Identified:
		return v.StoreID()
	case map[string]any:
		if id, ok := v["_id"]; ok {
			return id
		}
		return v["id"]
	default:
		return data
	}
}

// isFalsy reports whether id selects the default scope.
func isFalsy(id any) bool {
	switch v := id.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case int:
		return v == 0
	case int8:
		return v == 0
	case int16:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case uint:
		return v == 0
	case uint8:
		return v == 0
	case uint16:
		return v == 0
	case uint32:
		return v == 0
	case uint64:
		return v == 0
	case float32:
		return v == 0 || math.IsNaN(float64(v))
	case float64:
		return v == 0 || math.IsNaN(v)
	}

	// Typed nils, e.g. a nil *Card stored in an interface.
	rv := reflect.ValueOf(id)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
