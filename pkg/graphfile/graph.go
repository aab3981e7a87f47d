// SPDX-License-Identifier: MPL-2.0

package graphfile

import (
	"cmp"
	"path"
	"slices"
	"strings"

	"github.com/invowk/livebind/internal/dag"
)

type (
	// Graph is a validated graph file.
	Graph struct {
		file  *File
		slots []*Observation
	}

	// Observation is what an importer sees of one import.
	Observation struct {
		// Importer is the importing module's name.
		Importer string
		// Specifier is the imported specifier.
		Specifier string
		// Name is the imported binding, "*" for a namespace, "require()" for
		// a classic require and "import()" for a dynamic import.
		Name string
		// Value is the latest delivered value (a live *entry.Namespace for
		// namespaces and dynamic imports).
		Value any
		// Err is set when a dynamic import was rejected.
		Err error
		// Seen reports whether anything was delivered.
		Seen bool
		// Deliveries counts how many times a value was delivered.
		Deliveries int
	}

	// Definer is the part of a host that accepts module sources.
	Definer interface {
		Define(id string, body any) error
	}
)

const (
	// NameNamespace marks a namespace observation.
	NameNamespace = "*"
	// NameRequire marks a classic require observation.
	NameRequire = "require()"
	// NameDynamic marks a dynamic import observation.
	NameDynamic = "import()"
)

func newGraph(f *File) *Graph {
	return &Graph{file: f}
}

// File returns the decoded file.
func (g *Graph) File() *File {
	return g.file
}

// Entry returns the entry module name.
func (g *Graph) Entry() string {
	return g.file.Entry
}

// Names returns the module names in sorted order.
func (g *Graph) Names() []string {
	return sortedKeys(g.file.Modules)
}

// ModuleID returns the host identity a module is installed under: its name
// plus ".mjs" for declarative and ".js" for classic modules, unless the name
// already has an extension.
func (g *Graph) ModuleID(name string) string {
	if path.Ext(name) != "" {
		return name
	}
	if g.file.Modules[name].Kind == KindScript {
		return name + ".js"
	}
	return name + ".mjs"
}

// Observed returns every recorded observation in declaration order, grouped
// by importer name.
func (g *Graph) Observed() []Observation {
	out := make([]Observation, 0, len(g.slots))
	for _, s := range g.slots {
		out = append(out, *s)
	}
	slices.SortStableFunc(out, func(a, b Observation) int { return cmp.Compare(a.Importer, b.Importer) })
	return out
}

// Static returns the declared dependency graph. An edge runs from a
// dependency to its importer. Specifiers that name no module of the graph,
// such as builtins, appear as nodes of their own.
func (g *Graph) Static() *dag.Graph {
	d := dag.New()
	names := g.Names()
	for _, name := range names {
		d.AddNode(name)
	}
	for _, name := range names {
		m := g.file.Modules[name]
		for _, spec := range m.specifiers() {
			d.AddEdge(g.resolveName(name, spec), name)
		}
	}
	return d
}

// specifiers lists every static and dynamic dependency in declaration order.
func (m Module) specifiers() []string {
	var out []string
	out = append(out, m.Reexport...)
	for _, imp := range m.Imports {
		out = append(out, imp.From)
	}
	out = append(out, m.Namespaces...)
	out = append(out, m.Requires...)
	out = append(out, m.Dynamic...)
	return out
}

// resolveName maps a specifier used by importer to a module name.
func (g *Graph) resolveName(importer, spec string) string {
	target := spec
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		target = path.Join(path.Dir(importer), spec)
	}
	if _, ok := g.file.Modules[target]; ok {
		return target
	}
	if trimmed := strings.TrimSuffix(target, path.Ext(target)); trimmed != target {
		if _, ok := g.file.Modules[trimmed]; ok {
			return trimmed
		}
	}
	return target
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
