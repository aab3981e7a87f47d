// SPDX-License-Identifier: MPL-2.0

package entry

import (
	"github.com/invowk/livebind/pkg/nullobject"
)

type (
	// Namespace is the live aggregate view of a module's bindings, the value
	// delivered to `import * as ns` style subscribers. Every read goes through
	// the module's getters, so a Namespace never goes stale.
	Namespace struct {
		entry *Entry
	}

	// Subscription is a handle on a namespace subscriber.
	Subscription struct {
		sub *subscription
	}
)

// Entry returns the Entry behind the namespace.
func (ns *Namespace) Entry() *Entry {
	return ns.entry.Current()
}

// Names returns the initialized binding names in registration order.
func (ns *Namespace) Names() []string {
	e := ns.Entry()
	e.syncScript()
	names := make([]string, 0, len(e.names))
	for _, name := range e.names {
		if _, ok := e.getters[name].Read(); ok {
			names = append(names, name)
		}
	}
	return names
}

// Read returns the current value of name. The boolean is false when the
// binding does not exist or is not initialized yet.
func (ns *Namespace) Read(name string) (any, bool) {
	e := ns.Entry()
	e.syncScript()
	g, ok := e.getters[name]
	if !ok {
		return nil, false
	}
	return g.Read()
}

// Has reports whether name is an initialized binding.
func (ns *Namespace) Has(name string) bool {
	_, ok := ns.Read(name)
	return ok
}

// Subscribe calls fn with the namespace on every propagation through the
// module until the subscription is cancelled. fn is not called immediately.
func (ns *Namespace) Subscribe(fn func(*Namespace)) *Subscription {
	s := &subscription{
		name: StarName,
		set: func(v any, _ *Entry) {
			if n, ok := v.(*Namespace); ok {
				fn(n)
			}
		},
	}
	e := ns.Entry()
	e.subs = append(e.subs, s)
	return &Subscription{sub: s}
}

// Cancel stops further deliveries. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s != nil && s.sub != nil {
		s.sub.cancelled = true
	}
}

// Object returns a snapshot of the namespace as a module-marked NullObject.
func (ns *Namespace) Object() *nullobject.Object {
	obj := nullobject.New()
	e := ns.Entry()
	e.syncScript()
	for _, name := range e.names {
		if v, ok := e.getters[name].Read(); ok {
			obj.Set(name, v)
		}
	}
	obj.MarkModule()
	return obj
}

// Map returns a snapshot of the namespace as a plain map.
func (ns *Namespace) Map() map[string]any {
	return ns.Object().Map()
}

// String renders the current namespace contents.
func (ns *Namespace) String() string {
	return ns.Object().String()
}
