// SPDX-License-Identifier: MPL-2.0

package entry

import (
	"errors"
	"reflect"
	"testing"

	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/nullobject"
	"github.com/invowk/livebind/pkg/sourcetype"
)

func TestAddGetters_SameGetterIsNoop(t *testing.T) {
	t.Parallel()

	e := New("a.mjs")
	g := Const(1)
	if err := e.AddGetters(g.Bind("x")); err != nil {
		t.Fatalf("AddGetters() error = %v", err)
	}
	if err := e.AddGetters(g.Bind("x")); err != nil {
		t.Fatalf("AddGetters() second call error = %v", err)
	}
	if got := e.Names(); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("Names() = %v, want [x]", got)
	}
}

func TestAddGetters_DuplicateExport(t *testing.T) {
	t.Parallel()

	e := New("a.mjs")
	if err := e.AddGetters(Const(1).Bind("x")); err != nil {
		t.Fatalf("AddGetters() error = %v", err)
	}
	err := e.AddGetters(Const(1).Bind("x"))
	if !errors.Is(err, ErrDuplicateExport) {
		t.Fatalf("AddGetters() error = %v, want ErrDuplicateExport", err)
	}
	var dup *DuplicateExportError
	if !errors.As(err, &dup) {
		t.Fatalf("AddGetters() error type = %T, want *DuplicateExportError", err)
	}
	if dup.Module != "a.mjs" || dup.Name != "x" {
		t.Errorf("DuplicateExportError = %+v", dup)
	}
}

func TestAddGetters_NilGetter(t *testing.T) {
	t.Parallel()

	err := New("a.mjs").AddGetters(Binding{Name: "x"})
	if !errors.Is(err, ErrNilGetter) {
		t.Errorf("AddGetters() error = %v, want ErrNilGetter", err)
	}
}

func TestAddGetters_LocalReplacesInherited(t *testing.T) {
	t.Parallel()

	child := New("b.mjs")
	if err := child.AddGetters(Const("from b").Bind("x")); err != nil {
		t.Fatal(err)
	}
	parent := New("a.mjs")
	parent.AddGettersFrom(child)

	if err := parent.AddGetters(Const("from a").Bind("x")); err != nil {
		t.Fatalf("AddGetters() over inherited name error = %v", err)
	}
	got, _ := parent.Namespace().Read("x")
	if got != "from a" {
		t.Errorf("Read(x) = %v, want local binding", got)
	}
}

func TestAddGettersFrom_SkipsDefaultAndExisting(t *testing.T) {
	t.Parallel()

	child := New("b.mjs")
	mustAdd(t, child, Const("b-x").Bind("x"), Const("b-y").Bind("y"), Const("b-default").Bind(DefaultName))

	parent := New("a.mjs")
	mustAdd(t, parent, Const("a-x").Bind("x"))

	if added := parent.AddGettersFrom(child); added != 1 {
		t.Errorf("AddGettersFrom() = %d, want 1", added)
	}
	if got := parent.Names(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Names() = %v, want [x y]", got)
	}
	if got, _ := parent.Namespace().Read("x"); got != "a-x" {
		t.Errorf("Read(x) = %v, want a-x", got)
	}
	if parent.AddGettersFrom(child) != 0 {
		t.Error("second AddGettersFrom() copied names again")
	}
}

func TestAddGettersFrom_StarCycleConverges(t *testing.T) {
	t.Parallel()

	a, b := New("a.mjs"), New("b.mjs")
	// a starts re-exporting b before b has defined anything.
	a.AddGettersFrom(b)
	mustAdd(t, a, Const("a").Bind("a"))
	mustAdd(t, b, Const("b").Bind("b"))
	b.AddGettersFrom(a)
	a.AddGettersFrom(b)

	want := map[string]any{"a": "a", "b": "b"}
	for _, e := range []*Entry{a, b} {
		if got := e.Namespace().Map(); !reflect.DeepEqual(got, want) {
			t.Errorf("%s namespace = %v, want %v", e.ID, got, want)
		}
	}
	if a.AddGettersFrom(b)+b.AddGettersFrom(a) != 0 {
		t.Error("converged tables kept growing")
	}
}

func TestUpdate_LiveBinding(t *testing.T) {
	t.Parallel()

	x := NewVar(1)
	producer := New("a.mjs")
	mustAdd(t, producer, x.Bind("x"))

	consumer := New("b.mjs")
	var seen []any
	producer.AddSetters(consumer, SetterPair{Name: "x", Set: func(v any, _ *Entry) { seen = append(seen, v) }})

	if err := producer.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	x.Set(2)
	if err := producer.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := producer.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if want := []any{1, 2, 2}; !reflect.DeepEqual(seen, want) {
		t.Errorf("setter saw %v, want %v", seen, want)
	}
}

func TestUpdate_SkipsUninitializedBindings(t *testing.T) {
	t.Parallel()

	x := DeclareVar[string]()
	producer := New("a.mjs")
	mustAdd(t, producer, x.Bind("x"))

	calls := 0
	producer.AddSetters(nil,
		SetterPair{Name: "x", Set: func(any, *Entry) { calls++ }},
		SetterPair{Name: "missing", Set: func(any, *Entry) { calls += 100 }},
	)
	if err := producer.Update(); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("setter called %d times before initialization", calls)
	}
	if producer.Namespace().Has("x") {
		t.Error("uninitialized binding visible in namespace")
	}

	x.Set("ready")
	if err := producer.Update(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("setter called %d times, want 1", calls)
	}
}

func TestUpdate_PropagatesThroughReexport(t *testing.T) {
	t.Parallel()

	// c imports x from b, which imports x from a and re-exports its own copy.
	x := NewVar("v1")
	a := New("a.mjs")
	mustAdd(t, a, x.Bind("x"))

	bx := DeclareVar[any]()
	b := New("b.mjs")
	mustAdd(t, b, bx.Bind("x"))
	a.AddSetters(b, SetterPair{Name: "x", Set: func(v any, _ *Entry) { bx.Set(v) }})

	var cx any
	b.AddSetters(New("c.mjs"), SetterPair{Name: "x", Set: func(v any, _ *Entry) { cx = v }})

	if err := a.Update(); err != nil {
		t.Fatal(err)
	}
	if cx != "v1" {
		t.Fatalf("c saw %v, want v1", cx)
	}
	x.Set("v2")
	if err := a.Update(); err != nil {
		t.Fatal(err)
	}
	if cx != "v2" {
		t.Errorf("c saw %v after update, want v2", cx)
	}
}

func TestUpdate_PropagatesThroughStarReexport(t *testing.T) {
	t.Parallel()

	// c imports x from a, which re-exports everything from b.
	x := NewVar("v1")
	a, b, c := New("a.mjs"), New("b.mjs"), New("c.mjs")
	mustAdd(t, b, x.Bind("x"))
	b.AddSetters(a, SetterPair{Name: StarName, Set: func(_ any, from *Entry) { a.AddGettersFrom(from) }})

	var cx any
	deliveries := 0
	a.AddSetters(c,
		SetterPair{Name: "x", Set: func(v any, _ *Entry) { cx = v }},
		SetterPair{Name: StarName, Set: func(any, *Entry) { deliveries++ }},
	)

	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	if cx != "v1" {
		t.Fatalf("c saw %v, want v1", cx)
	}
	before := deliveries

	x.Set("v2")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	if cx != "v2" {
		t.Errorf("c saw %v after update, want v2", cx)
	}
	if deliveries <= before {
		t.Error("namespace subscriber of a was not run again")
	}
}

func TestUpdate_StarCycleSettlesAfterChange(t *testing.T) {
	t.Parallel()

	x := NewVar(1)
	a, b := New("a.mjs", WithMaxSteps(20)), New("b.mjs", WithMaxSteps(20))
	mustAdd(t, b, x.Bind("x"))
	b.AddSetters(a, SetterPair{Name: StarName, Set: func(_ any, from *Entry) { a.AddGettersFrom(from) }})
	a.AddSetters(b, SetterPair{Name: StarName, Set: func(_ any, from *Entry) { b.AddGettersFrom(from) }})

	var seen any
	a.AddSetters(New("main.mjs"), SetterPair{Name: "x", Set: func(v any, _ *Entry) { seen = v }})

	for want := 1; want <= 3; want++ {
		x.Set(want)
		if err := b.Update(); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if seen != want {
			t.Errorf("main saw %v, want %d", seen, want)
		}
	}
}

func TestUpdate_CycleNonTermination(t *testing.T) {
	t.Parallel()

	// a's binding yields a new value on every read, so the a<->b cycle never
	// settles.
	counter := 0
	a := New("a.mjs", WithMaxSteps(50))
	mustAdd(t, a, Func(func() any { counter++; return counter }).Bind("x"))

	by := NewVar[any](nil)
	b := New("b.mjs")
	mustAdd(t, b, by.Bind("y"))

	a.AddSetters(b, SetterPair{Name: "x", Set: func(v any, _ *Entry) { by.Set(v) }})
	b.AddSetters(a, SetterPair{Name: "y", Set: func(any, *Entry) {}})

	err := a.Update()
	if !errors.Is(err, ErrCycleNonTermination) {
		t.Fatalf("Update() error = %v, want ErrCycleNonTermination", err)
	}
	var cyc *CycleNonTerminationError
	if !errors.As(err, &cyc) || cyc.Module != "a.mjs" || cyc.Steps != 50 {
		t.Errorf("CycleNonTerminationError = %+v", cyc)
	}
}

func TestUpdate_CycleConverges(t *testing.T) {
	t.Parallel()

	ax, by := NewVar("a"), NewVar("b")
	a, b := New("a.mjs"), New("b.mjs")
	mustAdd(t, a, ax.Bind("a"))
	mustAdd(t, b, by.Bind("b"))

	var aSeesB, bSeesA any
	b.AddSetters(a, SetterPair{Name: "b", Set: func(v any, _ *Entry) { aSeesB = v }})
	a.AddSetters(b, SetterPair{Name: "a", Set: func(v any, _ *Entry) { bSeesA = v }})

	if err := a.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if aSeesB != "b" || bSeesA != "a" {
		t.Errorf("a sees %v, b sees %v", aSeesB, bSeesA)
	}
}

func TestLoaded_WaitsForModuleBody(t *testing.T) {
	t.Parallel()

	mod := &host.Module{ID: "a.mjs", Filename: "a.mjs"}
	e := NewRegistry().Get(mod)

	if err := e.Loaded(); err != nil {
		t.Fatal(err)
	}
	if e.IsLoaded() {
		t.Fatal("IsLoaded() = true while the body is still running")
	}
	mod.Loaded = true
	if err := e.Loaded(); err != nil {
		t.Fatal(err)
	}
	if !e.IsLoaded() {
		t.Error("IsLoaded() = false after the body finished")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	keep := Const("first")
	e1 := New("a.mjs")
	mustAdd(t, e1, keep.Bind("x"))
	e1.AddSetters(nil, SetterPair{Name: "x", Set: func(any, *Entry) {}})

	e2 := New("a.mjs")
	mustAdd(t, e2, Const("second").Bind("x"), Const("y").Bind("y"))
	e2.AddSetters(nil, SetterPair{Name: "y", Set: func(any, *Entry) {}})
	e2.AddChild(New("c.mjs"))

	merged := e1.Merge(e2)
	snapshot := func() (names []string, subs, children int) {
		return merged.Names(), len(merged.subs), len(merged.Children())
	}
	names1, subs1, children1 := snapshot()

	e1.Merge(e2)
	e1.Merge(e1)
	e2.Merge(e1)
	names2, subs2, children2 := snapshot()

	if !reflect.DeepEqual(names1, names2) || subs1 != subs2 || children1 != children2 {
		t.Errorf("repeated merge changed entry: %v/%d/%d -> %v/%d/%d",
			names1, subs1, children1, names2, subs2, children2)
	}
	if !reflect.DeepEqual(names1, []string{"x", "y"}) || subs1 != 2 || children1 != 1 {
		t.Errorf("merge result = %v/%d/%d", names1, subs1, children1)
	}
	if g, _ := merged.Getter("x"); g != keep {
		t.Error("merge replaced the first registered getter")
	}
	if e2.Current() != e1 {
		t.Error("merged-away entry does not forward to survivor")
	}

	// Later registrations through the merged-away entry land on the survivor.
	mustAdd(t, e2, Const("z").Bind("z"))
	if _, ok := e1.Getter("z"); !ok {
		t.Error("AddGetters on merged-away entry was dropped")
	}
}

func TestAddChild_CollapsesRepeatedImports(t *testing.T) {
	t.Parallel()

	parent, child := New("a.mjs"), New("b.mjs")
	parent.AddChild(child)
	parent.AddChild(child)
	parent.AddChild(New("b.mjs"))
	if got := len(parent.Children()); got != 1 {
		t.Errorf("Children() len = %d, want 1", got)
	}
}

func TestScriptExportsBecomeBindings(t *testing.T) {
	t.Parallel()

	exports := nullobject.New()
	exports.Set("x", 1)
	e := New("c.js")
	e.SetExports(exports)
	e.SetSourceType(sourcetype.Script)

	ns := e.Namespace()
	if got := ns.Names(); !reflect.DeepEqual(got, []string{"default", "x"}) {
		t.Fatalf("Names() = %v", got)
	}
	exports.Set("x", 2)
	if got, _ := ns.Read("x"); got != 2 {
		t.Errorf("Read(x) = %v, want live value 2", got)
	}
	if got, _ := ns.Read(DefaultName); got != exports {
		t.Errorf("Read(default) = %v, want exports object", got)
	}
}

func TestIdentical(t *testing.T) {
	t.Parallel()

	m := map[string]int{"a": 1}
	s := []int{1, 2}
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nils", nil, nil, true},
		{"nil and value", nil, 1, false},
		{"equal ints", 1, 1, true},
		{"different types", 1, int64(1), false},
		{"same map", m, m, true},
		{"equal maps, different identity", m, map[string]int{"a": 1}, false},
		{"same slice", s, s, true},
		{"resliced", s, s[:1], false},
		{"struct with slice field", struct{ v []int }{s}, struct{ v []int }{s}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := identical(tt.a, tt.b); got != tt.want {
				t.Errorf("identical(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func mustAdd(t *testing.T, e *Entry, bindings ...Binding) {
	t.Helper()
	if err := e.AddGetters(bindings...); err != nil {
		t.Fatalf("AddGetters() error = %v", err)
	}
}
