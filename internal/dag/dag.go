// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed acyclic graph operations for topological
// sorting and cycle detection. It is used by the layer dependency engine to
// compute build order over layer closures.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering.
	CycleError struct {
		// Cycle contains the nodes forming the cycle, in traversal order,
		// closed by repeating the first node.
		Cycle []string
	}

	// Graph is a directed graph for topological sorting. Nodes are identified
	// by string keys. An edge from A to B means A depends on B: B must appear
	// before A in the computed order.
	Graph struct {
		// adjacency maps each node to its dependencies in insertion order.
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}

	color uint8
)

const (
	unvisited color = iota
	inProgress
	done
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
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

// AddEdge adds a directed edge from -> to, meaning "from" depends on "to".
// Both nodes are implicitly added if they don't exist. Duplicate edges are
// collapsed.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, dep := range g.adjacency[from] {
		if dep == to {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// HasNode reports whether the graph contains the named node.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Dependencies returns the direct dependencies of a node in insertion order.
func (g *Graph) Dependencies(name string) []string {
	deps := g.adjacency[name]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// TopologicalSort returns an order in which every dependency precedes its
// dependents, using depth-first traversal with three-color marking. The order
// is deterministic: roots and same-level dependencies are visited in the order
// they were added to the graph. Returns CycleError on the first back-edge
// found, identifying the cycle's nodes in traversal order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	colors := make(map[string]color, len(g.nodes))
	var order []string
	var stack []string

	var visit func(node string) error
	visit = func(node string) error {
		switch colors[node] {
		case done:
			return nil
		case inProgress:
			// Back-edge: the cycle is the portion of the stack from the
			// first occurrence of node onward.
			start := 0
			for i, n := range stack {
				if n == node {
					start = i
					break
				}
			}
			cycle := append([]string{}, stack[start:]...)
			cycle = append(cycle, node)
			return &CycleError{Cycle: cycle}
		}

		colors[node] = inProgress
		stack = append(stack, node)
		for _, dep := range g.adjacency[node] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		colors[node] = done
		order = append(order, node)
		return nil
	}

	for _, node := range g.nodes {
		if err := visit(node); err != nil {
			return nil, err
		}
	}

	return order, nil
}
