// SPDX-License-Identifier: MPL-2.0

// Package graphfile describes module graphs declaratively.
//
// A graph file names an entry module and, for every module, what it exports,
// what it imports and how it changes its bindings afterwards. Graph files are
// read from CUE (validated against an embedded schema), TOML, YAML or HCL:
//
//	entry: "main"
//	modules: {
//		main: {imports: [{from: "./a", names: ["a", "b"]}]}
//		a: {exports: {a: "a"}, reexport: ["./b"]}
//		b: {exports: {b: "b"}, reexport: ["./a"]}
//	}
//
// [Graph.Install] defines one body per module on a host; running the entry
// module through a runtime engine then records, in [Graph.Observed], what
// every importer currently sees.
package graphfile
