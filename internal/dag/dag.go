// SPDX-License-Identifier: MPL-2.0

// Package dag provides dependency ordering and cycle reporting for module
// graphs. Nodes are module identities; an edge from A to B means A must
// finish loading before B, i.e. B imports A.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is the sentinel wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError indicates that the graph contains a cycle, preventing a
	// static load order.
	CycleError struct {
		// Cycle contains the nodes left unordered (the cycles and the nodes
		// that depend on them).
		Cycle []string
	}

	// Graph is a directed graph with deterministic iteration order.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to. Both nodes are implicitly added.
// Repeated edges collapse into one.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Successors returns the nodes reachable over one edge from name.
func (g *Graph) Successors(name string) []string {
	return slices.Clone(g.adjacency[name])
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, next := range g.adjacency {
		n += len(next)
	}
	return n
}

// TopologicalSort returns a load order using Kahn's algorithm, or a
// *CycleError. Nodes at the same level keep insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

// Cycles returns the strongly connected components that form cycles: every
// component with more than one node, and single nodes with a self edge.
// Members keep insertion order and components are ordered by their first
// member.
func (g *Graph) Cycles() [][]string {
	t := tarjan{
		g:       g,
		index:   make(map[string]int, len(g.nodes)),
		low:     make(map[string]int, len(g.nodes)),
		onStack: make(map[string]bool, len(g.nodes)),
	}
	for _, node := range g.nodes {
		if _, seen := t.index[node]; !seen {
			t.connect(node)
		}
	}

	order := make(map[string]int, len(g.nodes))
	for i, node := range g.nodes {
		order[node] = i
	}
	var cycles [][]string
	for _, comp := range t.components {
		if len(comp) == 1 && !slices.Contains(g.adjacency[comp[0]], comp[0]) {
			continue
		}
		slices.SortFunc(comp, func(a, b string) int { return order[a] - order[b] })
		cycles = append(cycles, comp)
	}
	slices.SortFunc(cycles, func(a, b []string) int { return order[a[0]] - order[b[0]] })
	return cycles
}

type tarjan struct {
	g          *Graph
	next       int
	index      map[string]int
	low        map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjan) connect(v string) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.adjacency[v] {
		if _, seen := t.index[w]; !seen {
			t.connect(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.onStack[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var comp []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		comp = append(comp, w)
		if w == v {
			break
		}
	}
	t.components = append(t.components, comp)
}
