// SPDX-License-Identifier: MPL-2.0

package nullobject

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Object is an insertion-ordered string-keyed container. The zero value is
// not usable; construct with New or FromMap.
type Object struct {
	keys   []string
	values map[string]any
	// module marks the object as the exports object of a declarative module.
	module bool
}

// New creates an empty Object.
func New() *Object {
	return &Object{values: make(map[string]any)}
}

// FromMap creates an Object from m. Keys are inserted in the order given by
// keys; keys missing from m are skipped, and keys of m not listed are appended
// afterwards in sorted order.
func FromMap(m map[string]any, keys ...string) *Object {
	o := New()
	for _, k := range keys {
		if v, ok := m[k]; ok {
			o.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !o.Has(k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		o.Set(k, m[k])
	}
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores value under key. A new key is appended to the key order; an
// existing key keeps its position.
func (o *Object) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Delete removes key. It reports whether the key was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Range calls fn for each key in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, value any) bool) {
	if o == nil {
		return
	}
	for _, k := range o.Keys() {
		v, ok := o.values[k]
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

// Map returns a shallow copy of the contents as a plain map.
func (o *Object) Map() map[string]any {
	out := make(map[string]any, o.Len())
	o.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// Clone returns a shallow copy, including the module mark.
func (o *Object) Clone() *Object {
	c := New()
	o.Range(func(k string, v any) bool {
		c.Set(k, v)
		return true
	})
	c.module = o.module
	return c
}

// MarkModule flags the object as the exports object of a declarative module.
// The flag is not a key and never shows up in Keys or Map.
func (o *Object) MarkModule() {
	o.module = true
}

// IsModule reports whether MarkModule was called.
func (o *Object) IsModule() bool {
	return o != nil && o.module
}

// Equal reports whether both objects hold deeply equal values under the same
// set of keys. Key order is not significant.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	return reflect.DeepEqual(o.Map(), other.Map())
}

// String renders the object as {k: v, ...} in key order.
func (o *Object) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	first := true
	o.Range(func(k string, v any) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s: %v", k, v)
		return true
	})
	sb.WriteString("}")
	return sb.String()
}
