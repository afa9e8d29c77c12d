// Package report turns engine tables into rows people read: named owner and
// object pairs, and a per-object check of how much direct ownership adds up.
package report

import (
	"cmp"
	"slices"

	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

// Row is one owner/object/percent line of a table.
type Row struct {
	Owner   string  `json:"owner"`
	Object  string  `json:"object"`
	Percent float64 `json:"percent"`
}

// Rows flattens a name-keyed table, sorted by owner, then object.
func Rows(named engine.NamedTotals) []Row {
	rows := make([]Row, 0, len(named))
	for owner, targets := range named {
		for object, pct := range targets {
			rows = append(rows, Row{Owner: owner, Object: object, Percent: pct})
		}
	}
	slices.SortFunc(rows, func(a, b Row) int {
		return cmp.Or(cmp.Compare(a.Owner, b.Owner), cmp.Compare(a.Object, b.Object))
	})
	return rows
}

// TotalRows names an id-keyed table row by row. Unlike Rows over
// ResolveNames output, nodes that share a display name keep separate rows.
// Rows follow the table's source key and object id order.
func TotalRows(totals engine.Totals, r *engine.Resolver) []Row {
	entries := totals.Entries()
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			Owner:   r.SourceName(e.SourceKey),
			Object:  r.ObjectName(e.ObjectID),
			Percent: e.Percent,
		})
	}
	return rows
}

// Status classifies an object's direct ownership total.
type Status string

const (
	StatusOK      Status = "ok"
	StatusExceeds Status = "exceeds"
	StatusBelow   Status = "below"
	StatusNone    Status = "none"
)

// sumEpsilon absorbs float error in totals such as 33.33 + 33.33 + 33.34.
const sumEpsilon = 1e-9

// OwnerShare is one direct record held in an object.
type OwnerShare struct {
	OwnershipID string  `json:"ownershipId"`
	Owner       string  `json:"owner"`
	Percent     float64 `json:"percent"`
}

// ObjectSummary is the direct ownership picture of one object.
type ObjectSummary struct {
	ObjectID string       `json:"objectId"`
	Object   string       `json:"object"`
	Owners   []OwnerShare `json:"owners"`
	Total    float64      `json:"total"`
	Status   Status       `json:"status"`
}

// Summarize reports, for every object in calc order, who owns it directly and
// whether the direct shares add up to 100%.
func Summarize(calc snapshot.Calculation) []ObjectSummary {
	r := engine.NewResolver(calc.Entities, calc.Objects)

	byObject := make(map[string][]OwnerShare, len(calc.Objects))
	for _, own := range calc.Ownerships {
		byObject[own.ObjectID] = append(byObject[own.ObjectID], OwnerShare{
			OwnershipID: own.ID,
			Owner:       r.OwnerName(own.Owner),
			Percent:     own.Percent,
		})
	}

	out := make([]ObjectSummary, 0, len(calc.Objects))
	for _, obj := range calc.Objects {
		owners := byObject[obj.ID]
		total := 0.0
		for _, o := range owners {
			total += o.Percent
		}
		out = append(out, ObjectSummary{
			ObjectID: obj.ID,
			Object:   obj.Name,
			Owners:   owners,
			Total:    total,
			Status:   classify(total, len(owners)),
		})
	}
	return out
}

func classify(total float64, owners int) Status {
	switch {
	case total > 100+sumEpsilon:
		return StatusExceeds
	case owners == 0:
		return StatusNone
	case total < 100-sumEpsilon:
		return StatusBelow
	default:
		return StatusOK
	}
}
