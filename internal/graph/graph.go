// Package graph implements cycle detection over the directed subgraph
// formed by cycle-forming edge types (spec.md §4.5). This piece is
// deliberately built on the standard library only: no library in this
// corpus offers directed-cycle detection narrow enough to justify pulling
// in a full graph-database client for a handful-of-edges DFS (see
// DESIGN.md).
package graph

import "github.com/qmx/sterna/internal/types"

// WouldCreateCycle returns true if adding an edge source -> target of the
// given type would close a cycle in the directed subgraph formed by
// edges (conflating DependsOn, Blocks and ParentChild into one graph).
// RelatesTo and Duplicates never participate and always return false.
func WouldCreateCycle(edges []types.Edge, source, target string, edgeType types.EdgeType) bool {
	if !edgeType.CycleForming() {
		return false
	}

	adjacency := make(map[string][]string, len(edges))
	for _, e := range edges {
		if !e.Type.CycleForming() {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}
	adjacency[source] = append(adjacency[source], target)

	visited := make(map[string]bool, len(adjacency))
	return reaches(adjacency, target, source, visited)
}

// reaches performs a DFS from `from` looking for a path to `goal`. visited
// guards against infinite loops through pre-existing (uncaught) cycles in
// the graph, so the search always terminates in O(V+E).
func reaches(adjacency map[string][]string, from, goal string, visited map[string]bool) bool {
	if from == goal {
		return true
	}
	if visited[from] {
		return false
	}
	visited[from] = true
	for _, next := range adjacency[from] {
		if reaches(adjacency, next, goal, visited) {
			return true
		}
	}
	return false
}
