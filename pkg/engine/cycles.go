package engine

import (
	"sort"
	"strings"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

// color represents the state of a node during DFS cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS path (cycle if revisited)
	black              // fully processed
)

// DetectCycles returns the ownership cycles among objects, one per back edge
// found by a depth-first search. Each cycle is a list of node keys that starts
// and ends at the same node:
//
//	[object:1 object:2 object:1]
//
// Cycles are legal input. Propagation terminates on them and never reports a
// node as owning itself; this function exists for diagnostics. Nodes are
// visited in sorted key order so the output is deterministic.
func DetectCycles(ownerships []model.Ownership) [][]string {
	adj, _ := buildAdjacency(ownerships)
	return adj.cycles(false)
}

// FormatCycle converts a cycle path to a human-readable string.
// Example: "object:1 → object:2 → object:1"
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " → ")
}

// hasCycle reports whether any node can reach itself.
func (adj adjacency) hasCycle() bool {
	return len(adj.cycles(true)) > 0
}

// cycles runs a three-color DFS over the adjacency. With firstOnly set it stops
// at the first back edge.
func (adj adjacency) cycles(firstOnly bool) [][]string {
	colors := make(map[string]color)
	parent := make(map[string]string)
	var found [][]string

	var dfs func(n string) bool
	dfs = func(n string) bool {
		colors[n] = gray
		for _, e := range adj[n] {
			next := model.ObjectKey(e.target)
			switch colors[next] {
			case gray:
				found = append(found, reconstructCycle(n, next, parent))
				if firstOnly {
					return true
				}
			case white:
				parent[next] = n
				if dfs(next) {
					return true
				}
			}
		}
		colors[n] = black
		return false
	}

	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	for _, n := range nodes {
		if colors[n] == white {
			if dfs(n) {
				break
			}
		}
	}
	return found
}

// reconstructCycle builds the cycle path from parent pointers.
// from is the node where the back edge was found, to is the node it returns to.
func reconstructCycle(from, to string, parent map[string]string) []string {
	cycle := []string{to}
	for n := from; n != to; n = parent[n] {
		cycle = append([]string{n}, cycle...)
	}
	return append([]string{to}, cycle...)
}
