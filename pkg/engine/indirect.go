package engine

import (
	"fmt"
	"strings"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

// Strategy selects how indirect ownership is propagated.
type Strategy string

const (
	// StrategyPaths enumerates every cycle-free path from every source with a
	// depth-first walk. It is the reference behaviour and handles cycles.
	StrategyPaths Strategy = "paths"

	// StrategyAuto uses a memoized reverse-topological pass when the ownership
	// graph is acyclic and falls back to StrategyPaths otherwise. Both produce the
	// same sum-of-products over cycle-free paths.
	StrategyAuto Strategy = "auto"
)

// ParseStrategy converts a configuration value into a Strategy.
// The empty string selects StrategyPaths.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPaths:
		return StrategyPaths, nil
	case StrategyAuto:
		return StrategyAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Stats describes one propagation run.
type Stats struct {
	// Sources is the number of distinct source nodes walked.
	Sources int `json:"sources"`

	// Edges is the number of ownership edges in the adjacency structure.
	Edges int `json:"edges"`

	// Contributions counts recorded path contributions (paths strategy) or
	// memoized downstream entries (memo pass).
	Contributions int `json:"contributions"`

	// Strategy is the strategy that was requested.
	Strategy Strategy `json:"strategy"`

	// Acyclic reports whether the object graph had no cycles. Only computed
	// by StrategyAuto.
	Acyclic bool `json:"acyclic"`

	// Memoized reports whether the memoized pass produced the result.
	Memoized bool `json:"memoized"`
}

// Propagator computes indirect ownership tables.
// The zero value is not usable; create one with NewPropagator.
type Propagator struct {
	strategy Strategy
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithStrategy sets the propagation strategy. Unknown values are ignored.
func WithStrategy(s Strategy) Option {
	return func(p *Propagator) {
		switch s {
		case StrategyPaths, StrategyAuto:
			p.strategy = s
		}
	}
}

// NewPropagator creates a propagator that defaults to StrategyPaths.
func NewPropagator(opts ...Option) *Propagator {
	p := &Propagator{strategy: StrategyPaths}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Strategy returns the configured strategy.
func (p *Propagator) Strategy() Strategy {
	return p.strategy
}

// ComputeIndirect returns, for every entity and every object, the effective
// percentage it holds in each object reachable from it.
//
// The result is unfiltered: it includes one-hop entries that numerically equal
// direct edges and entries below any materiality threshold. Sources without any
// outgoing edge have no row.
//
// Example (convergent chains):
//
//	a -42%-> 1 -53%-> 5 -12%-> 9
//	a -35%-> 2 -21%-> 6 -63%-> 9 -32%-> 10
//
//	totals["entity:a"]["9"]  == 7.3  // 0.42*0.53*0.12 + 0.35*0.21*0.63
//	totals["entity:a"]["10"] == 2.34
func ComputeIndirect(entities []model.Entity, objects []model.OwnedObject, ownerships []model.Ownership) Totals {
	totals, _ := NewPropagator().Run(entities, objects, ownerships)
	return totals
}

// Run computes the indirect table and reports statistics about the run.
// Ownerships are expected to be already filtered by the caller when some
// direct edges should not take part in propagation.
func (p *Propagator) Run(entities []model.Entity, objects []model.OwnedObject, ownerships []model.Ownership) (Totals, Stats) {
	adj, edges := buildAdjacency(ownerships)
	sources := sourceKeys(entities, objects)

	stats := Stats{Sources: len(sources), Edges: edges, Strategy: p.strategy}

	var raw Totals
	if p.strategy == StrategyAuto {
		stats.Acyclic = !adj.hasCycle()
	}
	if stats.Acyclic {
		raw, stats.Contributions = propagateMemo(sources, adj)
		stats.Memoized = true
	} else {
		raw, stats.Contributions = propagatePaths(sources, adj)
	}

	out := make(Totals, len(raw))
	for source, row := range raw {
		rounded := make(map[string]float64, len(row))
		for objectID, fraction := range row {
			rounded[objectID] = roundPercent(fraction)
		}
		out[source] = rounded
	}
	return out, stats
}

// edge is an outgoing ownership edge in fractional weight.
type edge struct {
	target string // object id
	weight float64
}

// adjacency maps a node key to its outgoing edges, in input order.
type adjacency map[string][]edge

// buildAdjacency groups ownerships by owner node key.
func buildAdjacency(ownerships []model.Ownership) (adjacency, int) {
	adj := make(adjacency)
	n := 0
	for _, own := range ownerships {
		var from string
		switch own.Owner.Kind {
		case model.KindEntity:
			from = own.Owner.Key()
		case model.KindObject:
			from = model.ObjectKey(own.Owner.ID)
		default:
			continue
		}
		adj[from] = append(adj[from], edge{target: own.ObjectID, weight: own.Weight()})
		n++
	}
	return adj, n
}

// sourceKeys lists every entity and then every object as a source, once each.
func sourceKeys(entities []model.Entity, objects []model.OwnedObject) []string {
	seen := make(map[string]struct{}, len(entities)+len(objects))
	keys := make([]string, 0, len(entities)+len(objects))
	push := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, e := range entities {
		push(model.EntityOwner(e.ID).Key())
	}
	for _, o := range objects {
		push(model.ObjectKey(o.ID))
	}
	return keys
}

// propagatePaths walks every cycle-free path from each source and sums the
// product of edge weights per reached object.
//
// onPath holds exactly the nodes of the current path: a node is added before
// descending into it and removed on the way back, so sibling branches never
// see each other's nodes. A node can therefore be reached, and counted, along
// several distinct paths, while no single path revisits a node. The source is
// on every path from the start, so a source is never its own target.
func propagatePaths(sources []string, adj adjacency) (Totals, int) {
	raw := make(Totals)
	contributions := 0

	var walk func(source, current string, acc float64, onPath map[string]struct{})
	walk = func(source, current string, acc float64, onPath map[string]struct{}) {
		for _, e := range adj[current] {
			next := model.ObjectKey(e.target)
			if _, ok := onPath[next]; ok {
				continue // closes a cycle
			}
			contribution := acc * e.weight
			raw.add(source, e.target, contribution)
			contributions++

			onPath[next] = struct{}{}
			walk(source, next, contribution, onPath)
			delete(onPath, next)
		}
	}

	for _, source := range sources {
		if len(adj[source]) == 0 {
			continue
		}
		walk(source, source, 1, map[string]struct{}{source: {}})
	}
	return raw, contributions
}

// propagateMemo computes downstream fractions bottom-up for an acyclic graph.
// down(n)[t] is the sum over all paths n ~> t of the product of weights, which
// equals the path enumeration result when no cycles exist.
func propagateMemo(sources []string, adj adjacency) (Totals, int) {
	memo := make(map[string]map[string]float64)
	contributions := 0

	var down func(node string) map[string]float64
	down = func(node string) map[string]float64 {
		if m, ok := memo[node]; ok {
			return m
		}
		m := make(map[string]float64)
		for _, e := range adj[node] {
			m[e.target] += e.weight
			for target, fraction := range down(model.ObjectKey(e.target)) {
				m[target] += e.weight * fraction
			}
		}
		memo[node] = m
		contributions += len(m)
		return m
	}

	raw := make(Totals)
	for _, source := range sources {
		for target, fraction := range down(source) {
			raw.add(source, target, fraction)
		}
	}
	return raw, contributions
}
