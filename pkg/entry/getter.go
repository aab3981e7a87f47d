// SPDX-License-Identifier: MPL-2.0

package entry

type (
	// Getter reads the current value of an exported binding. Getters are
	// compared by pointer: registering the same *Getter twice under a name is
	// a no-op, registering a different one is a duplicate export.
	Getter struct {
		read func() (any, bool)
	}

	// Binding pairs an exported name with its Getter.
	Binding struct {
		Name   string
		Getter *Getter
	}

	// Var is a mutable exported variable. Its Getter is stable, so a module
	// can export the same Var any number of times. A Var created with
	// DeclareVar is uninitialized, and absent from namespaces, until the
	// first Set.
	Var[T any] struct {
		value  T
		set    bool
		getter *Getter
	}
)

// NewGetter wraps read. The boolean result reports whether the binding is
// initialized; uninitialized bindings are skipped by propagation.
func NewGetter(read func() (any, bool)) *Getter {
	return &Getter{read: read}
}

// Func wraps a getter that is always initialized.
func Func(read func() any) *Getter {
	return NewGetter(func() (any, bool) { return read(), true })
}

// Const returns a Getter that always yields v.
func Const(v any) *Getter {
	return NewGetter(func() (any, bool) { return v, true })
}

// Read calls the getter.
func (g *Getter) Read() (any, bool) {
	if g == nil || g.read == nil {
		return nil, false
	}
	return g.read()
}

// Bind pairs name with g.
func (g *Getter) Bind(name string) Binding {
	return Binding{Name: name, Getter: g}
}

// NewVar returns an initialized Var holding v.
func NewVar[T any](v T) *Var[T] {
	return &Var[T]{value: v, set: true}
}

// DeclareVar returns an uninitialized Var.
func DeclareVar[T any]() *Var[T] {
	return &Var[T]{}
}

// Get returns the current value (the zero value while uninitialized).
func (v *Var[T]) Get() T {
	return v.value
}

// Set assigns x and returns it. Set does not propagate; callers signal the
// change through the runtime's Update.
func (v *Var[T]) Set(x T) T {
	v.value = x
	v.set = true
	return x
}

// Initialized reports whether the Var has been assigned.
func (v *Var[T]) Initialized() bool {
	return v.set
}

// Getter returns the Var's stable Getter.
func (v *Var[T]) Getter() *Getter {
	if v.getter == nil {
		v.getter = NewGetter(func() (any, bool) {
			if !v.set {
				return nil, false
			}
			return v.value, true
		})
	}
	return v.getter
}

// Bind pairs name with the Var's Getter.
func (v *Var[T]) Bind(name string) Binding {
	return v.Getter().Bind(name)
}
