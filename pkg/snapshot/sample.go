package snapshot

import "github.com/Stoky555/ownership-graph/pkg/model"

// Sample returns a small demonstration network: two entities feeding three
// object chains that converge on object 9, with 10 as the terminal asset.
//
//	Alpha (a) ─42%─> 1 ─53%─> 5 ─12%─> 9 ─32%─> 10
//	          └35%─> 2 ─21%─> 6 ─63%─┘
//	Beta  (b) ─12%─> 3 ─32%─> 7 ─74%─> 8 ─35%─┘
func Sample() Calculation {
	a, b := model.EntityOwner("a"), model.EntityOwner("b")
	o := model.ObjectOwner

	edge := func(owner model.OwnerRef, objectID string, percent float64) model.Ownership {
		return model.Ownership{
			ID:       owner.Key() + "->" + model.ObjectKey(objectID),
			Owner:    owner,
			ObjectID: objectID,
			Percent:  percent,
		}
	}

	return Calculation{
		Version: FormatVersion,
		Meta:    &Meta{Name: "Sample structure", CreatedAt: "2025-01-01T00:00:00Z"},
		Entities: []model.Entity{
			{ID: "a", Name: "Alpha Holdings"},
			{ID: "b", Name: "Beta Ltd"},
		},
		Objects: []model.OwnedObject{
			{ID: "1", Name: "Site A"},
			{ID: "2", Name: "Warehouse B"},
			{ID: "3", Name: "Plant C"},
			{ID: "5", Name: "Unit E"},
			{ID: "6", Name: "Depot F"},
			{ID: "7", Name: "Yard G"},
			{ID: "8", Name: "Station H"},
			{ID: "9", Name: "Aggregator I"},
			{ID: "10", Name: "Final Asset J"},
		},
		Ownerships: []model.Ownership{
			edge(a, "1", 42),
			edge(a, "2", 35),
			edge(b, "3", 12),
			edge(o("1"), "5", 53),
			edge(o("2"), "6", 21),
			edge(o("3"), "7", 32),
			edge(o("7"), "8", 74),
			edge(o("5"), "9", 12),
			edge(o("6"), "9", 63),
			edge(o("8"), "9", 35),
			edge(o("9"), "10", 32),
		},
	}
}
