// SPDX-License-Identifier: MPL-2.0

package entry

import (
	"cmp"
	"reflect"
	"slices"
	"sync"

	"github.com/invowk/livebind/pkg/host"
)

type (
	// Registry keeps one Entry per module identity and maps exports values
	// back to the Entry that owns them.
	Registry struct {
		mu        sync.Mutex
		byID      map[string]*Entry
		byExports map[exportsKey]*Entry
		adopted   map[*Entry]*Entry
		opts      []Option
	}

	exportsKey struct {
		typ reflect.Type
		ptr uintptr
	}
)

// NewRegistry creates an empty registry. opts are applied to every Entry it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		byID:      make(map[string]*Entry),
		byExports: make(map[exportsKey]*Entry),
		adopted:   make(map[*Entry]*Entry),
		opts:      opts,
	}
}

// Get returns the Entry for mod, creating it on first access. An Entry
// already registered under mod's current exports value is used when none is
// registered under mod's identity.
func (r *Registry) Get(mod *host.Module) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[mod.ID]; ok {
		return r.keep(e.Current())
	}
	if e, ok := r.lookupExports(mod.Exports); ok {
		r.byID[mod.ID] = e
		return e
	}
	return r.create(mod, mod.Exports)
}

// GetWith returns the Entry registered under exported, falling back to the
// Entry for mod's identity, creating one on first access.
func (r *Registry) GetWith(mod *host.Module, exported any, opts host.Options) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.lookupExports(exported); ok {
		return e
	}
	if e, ok := r.byID[mod.ID]; ok {
		return r.keep(e.Current())
	}
	e := r.create(mod, exported)
	e.Options = opts
	return e
}

// Set maps exported back to e. Values that have no identity of their own
// (numbers, strings, structs) are ignored.
func (r *Registry) Set(exported any, e *Entry) {
	k, ok := keyOf(exported)
	if !ok || e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExports[k] = e
}

// Lookup returns the Entry registered under id.
func (r *Registry) Lookup(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.keep(e.Current()), true
}

// Adopt registers a fork of a prebuilt Entry, such as a builtin module's,
// configured with the registry's options. e itself never gains subscribers,
// so it can be shared between registries. Adopting the same Entry again
// returns the same fork. When an Entry with the same identity exists, the
// fork is merged into it.
func (r *Registry) Adopt(e *Entry) *Entry {
	e = e.Current()
	r.mu.Lock()
	if f, ok := r.adopted[e]; ok {
		r.mu.Unlock()
		return f.Current()
	}
	f := e.Fork(r.opts...)
	r.adopted[e] = f
	existing, ok := r.byID[f.ID]
	if !ok {
		r.byID[f.ID] = f
		if k, ok := keyOf(f.exports); ok {
			r.byExports[k] = f
		}
		r.mu.Unlock()
		return f
	}
	r.mu.Unlock()
	return existing.Merge(f)
}

// Forget drops the Entry registered under id, together with every other
// identity and exports value mapped to it, and reports whether one was
// registered. The host calls for it when a module body fails: the module
// leaves the host caches and a later load must start from a fresh Entry.
func (r *Registry) Forget(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	e = e.Current()
	for k, v := range r.byID {
		if v.Current() == e {
			delete(r.byID, k)
		}
	}
	for k, v := range r.byExports {
		if v.Current() == e {
			delete(r.byExports, k)
		}
	}
	for k, v := range r.adopted {
		if v.Current() == e {
			delete(r.adopted, k)
		}
	}
	return true
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Entries returns the registered Entries ordered by identity.
func (r *Registry) Entries() []*Entry {
	r.mu.Lock()
	out := make([]*Entry, 0, len(r.byID))
	seen := make(map[*Entry]bool, len(r.byID))
	for _, e := range r.byID {
		e = e.Current()
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b *Entry) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// keep replaces a stored merged-away Entry with its survivor.
func (r *Registry) keep(e *Entry) *Entry {
	r.byID[e.ID] = e
	return e
}

func (r *Registry) lookupExports(exported any) (*Entry, bool) {
	k, ok := keyOf(exported)
	if !ok {
		return nil, false
	}
	e, ok := r.byExports[k]
	if !ok {
		return nil, false
	}
	return e.Current(), true
}

func (r *Registry) create(mod *host.Module, exported any) *Entry {
	e := New(mod.ID, r.opts...)
	e.module = mod
	e.exports = exported
	e.Options = mod.Options
	if mod.Filename != "" {
		e.URL = FileURL(mod.Filename)
	}
	r.byID[mod.ID] = e
	if k, ok := keyOf(exported); ok {
		r.byExports[k] = e
	}
	return e
}

func keyOf(v any) (exportsKey, bool) {
	if v == nil {
		return exportsKey{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.UnsafePointer:
		if rv.IsNil() {
			return exportsKey{}, false
		}
		return exportsKey{typ: rv.Type(), ptr: rv.Pointer()}, true
	default:
		return exportsKey{}, false
	}
}
