package engine

import "github.com/Stoky555/ownership-graph/pkg/model"

// ComputeDirect aggregates direct ownership per (owner, object) pair.
//
// Multiple records between the same pair are added together rather than
// overwritten, so several smaller stakes report as one figure:
//
//	entity:a -> 1 at 10% and entity:a -> 1 at 5% => totals["entity:a"]["1"] == 15
//
// Sums are returned unrounded.
func ComputeDirect(ownerships []model.Ownership) Totals {
	out := make(Totals)
	for _, own := range ownerships {
		out.add(own.Owner.Key(), own.ObjectID, own.Percent)
	}
	return out
}
