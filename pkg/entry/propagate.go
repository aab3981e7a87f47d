// SPDX-License-Identifier: MPL-2.0

package entry

import (
	"reflect"
	"slices"
)

// Update delivers the current value of every subscribed binding to its
// setter. A subscriber whose Entry changed as a result (a different value was
// delivered, or its own table grew) has its subscribers run in the same call,
// until nothing changes. Update is safe to call any number of times.
func (e *Entry) Update() error {
	return propagate(e.Current())
}

// Loaded marks the Entry loaded once its host module has finished executing
// and propagates like Update. Calling it while the body is still running, as
// happens when a cycle reaches the module again, only propagates.
func (e *Entry) Loaded() error {
	e = e.Current()
	if !e.loaded && (e.module == nil || e.module.Loaded) {
		e.loaded = true
		e.logger.Debug("module loaded", "module", e.ID)
	}
	return propagate(e)
}

func propagate(start *Entry) error {
	if start == nil {
		return nil
	}
	limit := start.maxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}

	queue := []*Entry{start}
	queued := map[*Entry]bool{start: true}
	for steps := 0; len(queue) > 0; steps++ {
		if steps >= limit {
			start.logger.Warn("binding propagation did not converge", "module", start.ID, "steps", steps)
			return &CycleNonTerminationError{Module: start.ID, Steps: steps}
		}
		cur := queue[0].Current()
		delete(queued, queue[0])
		queue = queue[1:]

		cur.syncScript()
		cur.pruneCancelled()
		for _, s := range slices.Clone(cur.subs) {
			if s.cancelled {
				continue
			}
			parent := s.parent.Current()
			var before uint64
			if parent != nil {
				before = parent.version
			}
			changed := cur.deliver(s)
			if parent == nil || queued[parent] {
				continue
			}
			if changed || parent.version != before {
				queue = append(queue, parent)
				queued[parent] = true
			}
		}
	}
	return nil
}

// deliver runs one subscription and reports whether it observed a value
// different from the one it was last given. A StarName subscription changes
// whenever any initialized name or value of the namespace differs from its
// last delivery.
func (e *Entry) deliver(s *subscription) bool {
	if s.name == StarName {
		ns := e.Namespace()
		s.set(ns, e)
		snap := e.snapshot()
		changed := !s.delivered || !sameSnapshot(s.snapshot, snap)
		s.delivered, s.last, s.snapshot = true, ns, snap
		return changed
	}
	g, ok := e.getters[s.name]
	if !ok {
		return false
	}
	v, ok := g.Read()
	if !ok {
		return false
	}
	s.set(v, e)
	changed := !s.delivered || !identical(s.last, v)
	s.delivered, s.last = true, v
	return changed
}

// pruneCancelled drops subscriptions cancelled since the last wave.
func (e *Entry) pruneCancelled() {
	e.subs = slices.DeleteFunc(e.subs, func(s *subscription) bool { return s.cancelled })
}

// snapshot reads every initialized binding in registration order.
func (e *Entry) snapshot() []namedValue {
	e = e.Current()
	e.syncScript()
	out := make([]namedValue, 0, len(e.names))
	for _, name := range e.names {
		if v, ok := e.getters[name].Read(); ok {
			out = append(out, namedValue{name: name, value: v})
		}
	}
	return out
}

func sameSnapshot(a, b []namedValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].name != b[i].name || !identical(a[i].value, b[i].value) {
			return false
		}
	}
	return true
}

// identical compares delivered values without panicking on uncomparable
// types. Reference kinds compare by address.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Type().Comparable() {
		return safeEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
