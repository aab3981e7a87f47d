// SPDX-License-Identifier: MPL-2.0

package graphfile

import (
	"fmt"

	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/nullobject"
	"github.com/invowk/livebind/pkg/requirefunc"
	"github.com/invowk/livebind/pkg/runtime"
)

// Install defines a body for every module of the graph on d. Observations
// from an earlier install are discarded.
func (g *Graph) Install(d Definer) error {
	g.slots = nil
	for _, name := range g.Names() {
		m := g.file.Modules[name]
		var body any
		if m.Kind == KindScript {
			body = g.scriptBody(name, m)
		} else {
			body = g.moduleBody(name, m)
		}
		if err := d.Define(g.ModuleID(name), body); err != nil {
			return fmt.Errorf("install module %s: %w", name, err)
		}
	}
	return nil
}

func (g *Graph) slot(importer, specifier, name string) *Observation {
	o := &Observation{Importer: importer, Specifier: specifier, Name: name}
	g.slots = append(g.slots, o)
	return o
}

func (o *Observation) record(v any) {
	o.Value, o.Seen = v, true
	o.Deliveries++
}

func (o *Observation) setter() entry.Setter {
	return func(v any, _ *entry.Entry) { o.record(v) }
}

// moduleBody mirrors a declarative module: bindings are declared first and
// stay uninitialized until the imports have been wired, then initialized,
// then required, dynamically imported and reassigned in order.
func (g *Graph) moduleBody(name string, m Module) runtime.ModuleBody {
	type pending struct {
		obs  *Observation
		spec string
	}
	var requires, dynamic []pending
	imports := make([][]*Observation, len(m.Imports))
	namespaces := make([]*Observation, len(m.Namespaces))
	for i, imp := range m.Imports {
		for _, n := range imp.Names {
			imports[i] = append(imports[i], g.slot(name, imp.From, n))
		}
	}
	for i, spec := range m.Namespaces {
		namespaces[i] = g.slot(name, spec, NameNamespace)
	}
	for _, spec := range m.Requires {
		requires = append(requires, pending{g.slot(name, spec, NameRequire), spec})
	}
	for _, spec := range m.Dynamic {
		dynamic = append(dynamic, pending{g.slot(name, spec, NameDynamic), spec})
	}

	return func(rt *runtime.Runtime) error {
		vars := make(map[string]*entry.Var[any], len(m.Exports))
		for _, k := range sortedKeys(m.Exports) {
			vars[k] = entry.DeclareVar[any]()
			if err := rt.Export(vars[k].Bind(k)); err != nil {
				return err
			}
		}
		for _, spec := range m.Reexport {
			if err := rt.ExportAll(spec); err != nil {
				return err
			}
		}
		for i, imp := range m.Imports {
			pairs := make([]entry.SetterPair, len(imp.Names))
			for j, n := range imp.Names {
				pairs[j] = entry.SetterPair{Name: n, Set: imports[i][j].setter()}
			}
			if err := rt.Watch(imp.From, pairs...); err != nil {
				return err
			}
		}
		for i, spec := range m.Namespaces {
			if err := rt.Watch(spec, entry.SetterPair{Name: entry.StarName, Set: namespaces[i].setter()}); err != nil {
				return err
			}
		}

		for k, v := range vars {
			v.Set(m.Exports[k])
		}
		if m.Default != nil {
			if err := rt.Default(m.Default); err != nil {
				return err
			}
		}
		if _, err := rt.Update(nil); err != nil {
			return err
		}

		for _, p := range requires {
			v, err := rt.Require(p.spec)
			if err != nil {
				return err
			}
			p.obs.record(v)
		}
		for _, p := range dynamic {
			obs := p.obs
			rt.Import(p.spec).Then(func(ns *entry.Namespace, err error) {
				if err != nil {
					obs.Err = err
					return
				}
				obs.record(ns)
			})
		}
		for _, a := range m.Assign {
			if _, err := runtime.Assign(rt, vars[a.Name], a.Value); err != nil {
				return err
			}
		}
		return nil
	}
}

// scriptBody mirrors a classic module: exports are assigned on the exports
// object, requires run in order and a default replaces the exports wholesale.
func (g *Graph) scriptBody(name string, m Module) runtime.ScriptBody {
	requires := make([]*Observation, len(m.Requires))
	for i, spec := range m.Requires {
		requires[i] = g.slot(name, spec, NameRequire)
	}

	return func(exports *nullobject.Object, require requirefunc.Func, mod *host.Module) error {
		for _, k := range sortedKeys(m.Exports) {
			exports.Set(k, m.Exports[k])
		}
		for i, spec := range m.Requires {
			v, err := require(spec)
			if err != nil {
				return err
			}
			requires[i].record(v)
		}
		if m.Default != nil {
			mod.Exports = m.Default
		}
		return nil
	}
}
