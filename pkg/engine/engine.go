// Package engine computes direct and effective (indirect) ownership across an
// ownership network.
//
// The engine is stateless and pure. Every operation receives a full snapshot of
// entities, objects and ownerships and returns freshly built id-keyed tables;
// nothing is cached between calls and no operation blocks.
//
// # Operations
//
//  1. ComputeDirect - collapses duplicate (owner, object) edges into one summed percentage
//  2. ComputeIndirect - sums, over every distinct cycle-free path, the product of edge
//     weights from each source to each reachable object
//  3. ResolveNames - projects an id-keyed table onto display names for reporting
//
// # Table Shape
//
// Both direct and indirect tables are keyed first by source key
// ("entity:<id>" or "object:<id>") and then by target object id:
//
//	totals["entity:a"]["9"] == 7.3 // Alpha effectively owns 7.3% of object 9
//
// Every object is a source as well as a target, because an object's downstream
// effective ownership of other objects is itself a reportable quantity.
//
// # Edge Identity
//
// DirectID and IndirectID produce canonical relationship ids. A one-hop
// indirect result and the direct edge between the same endpoints share an id,
// so consumers that want a strictly multi-hop view must exclude indirect ids
// that collide with a direct edge id. ComputeIndirect never does this itself;
// StrictlyIndirect packages the exclusion for callers.
//
// # Cost
//
// Indirect propagation is path enumeration, not a closed-form transitive
// closure: cost grows with the number of distinct cycle-free paths, which can be
// combinatorial in dense graphs. That is fine for ownership structures of tens to
// a few hundred nodes. For acyclic inputs StrategyAuto switches to a memoized
// reverse-topological pass with identical semantics.
package engine

import (
	"math"
	"sort"
)

// Totals is an id-keyed result table: source key -> target object id -> percent.
type Totals map[string]map[string]float64

// NamedTotals is a display-name keyed result table: owner name -> object name -> percent.
// Distinct nodes that share a display name collapse into one row; id-keyed
// Totals remain the source of truth.
type NamedTotals map[string]map[string]float64

// Entry is a single (source, target, percent) triple of a Totals table.
type Entry struct {
	SourceKey string  `json:"sourceKey"`
	ObjectID  string  `json:"objectId"`
	Percent   float64 `json:"percent"`
}

// ID returns the canonical indirect edge id of the entry.
func (e Entry) ID() string {
	return IndirectID(e.SourceKey, e.ObjectID)
}

// Get returns the percent recorded for (sourceKey, objectID).
func (t Totals) Get(sourceKey, objectID string) (float64, bool) {
	row, ok := t[sourceKey]
	if !ok {
		return 0, false
	}
	pct, ok := row[objectID]
	return pct, ok
}

// Len returns the number of (source, target) entries in the table.
func (t Totals) Len() int {
	n := 0
	for _, row := range t {
		n += len(row)
	}
	return n
}

// Entries flattens the table into triples sorted by source key, then object id.
func (t Totals) Entries() []Entry {
	entries := make([]Entry, 0, t.Len())
	for _, source := range sortedKeys(t) {
		row := t[source]
		for _, objectID := range sortedKeys(row) {
			entries = append(entries, Entry{SourceKey: source, ObjectID: objectID, Percent: row[objectID]})
		}
	}
	return entries
}

// add accumulates pct into t[source][objectID], creating the row if needed.
func (t Totals) add(source, objectID string, pct float64) {
	row, ok := t[source]
	if !ok {
		row = make(map[string]float64)
		t[source] = row
	}
	row[objectID] += pct
}

// roundPercent converts a fraction to a percentage rounded to two decimals.
// Applied once per (source, target) after all paths are summed.
func roundPercent(fraction float64) float64 {
	return math.Round(fraction*100*100) / 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
