package engine

import "github.com/Stoky555/ownership-graph/pkg/model"

// DirectID returns the canonical id of a direct edge:
// "<ownerKind>:<ownerId>->object:<objectId>".
// Duplicate ownership records between the same pair share one id.
func DirectID(own model.Ownership) string {
	return IndirectID(own.Owner.Key(), own.ObjectID)
}

// IndirectID returns the canonical id of a computed relationship:
// "<sourceKey>->object:<objectId>".
func IndirectID(sourceKey, objectID string) string {
	return sourceKey + "->" + model.ObjectKey(objectID)
}

// DirectEdgeIDs returns the set of direct edge ids present in ownerships.
func DirectEdgeIDs(ownerships []model.Ownership) map[string]struct{} {
	ids := make(map[string]struct{}, len(ownerships))
	for _, own := range ownerships {
		ids[DirectID(own)] = struct{}{}
	}
	return ids
}

// StrictlyIndirect returns a copy of totals without the entries whose
// canonical id coincides with a direct edge in ownerships. What remains is
// reachable only through at least one intermediate object.
func StrictlyIndirect(totals Totals, ownerships []model.Ownership) Totals {
	direct := DirectEdgeIDs(ownerships)
	out := make(Totals, len(totals))
	for source, row := range totals {
		for objectID, pct := range row {
			if _, ok := direct[IndirectID(source, objectID)]; ok {
				continue
			}
			out.add(source, objectID, pct)
		}
	}
	return out
}
