// Package layers turns a calculation into the two lists an ownership view
// shows side by side: the direct edges as entered and the strictly indirect
// relationships derived from them.
//
// Hiding a direct edge removes it from propagation, so the indirect list always
// reflects only the visible direct structure. Hiding an indirect edge only
// affects what a renderer draws.
package layers

import (
	"sort"

	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/graphview"
	"github.com/Stoky555/ownership-graph/pkg/model"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

// DefaultThreshold is the materiality cut-off for indirect rows, in percent.
// Rows at or below it are omitted.
const DefaultThreshold = 0.01

// Options controls how layers are built.
type Options struct {
	HiddenDirect   []string        `json:"hiddenDirect,omitempty"`
	HiddenIndirect []string        `json:"hiddenIndirect,omitempty"`
	Threshold      float64         `json:"threshold,omitempty"` // 0 selects DefaultThreshold
	Strategy       engine.Strategy `json:"strategy,omitempty"`
}

// DirectRow is one direct ownership record with display labels.
type DirectRow struct {
	ID          string          `json:"id"`
	Ownership   model.Ownership `json:"ownership"`
	OwnerLabel  string          `json:"ownerLabel"`
	ObjectLabel string          `json:"objectLabel"`
	Percent     float64         `json:"percent"`
	Hidden      bool            `json:"hidden"`
}

// IndirectRow is a relationship reachable only through intermediate objects.
type IndirectRow struct {
	ID        string  `json:"id"`
	SourceKey string  `json:"sourceKey"`
	ObjectID  string  `json:"objectId"`
	Label     string  `json:"label"`
	Percent   float64 `json:"percent"`
	Hidden    bool    `json:"hidden"`
}

// Layers is the result of Build.
type Layers struct {
	Direct             []DirectRow       `json:"direct"`
	Indirect           []IndirectRow     `json:"indirect"`
	Totals             engine.Totals     `json:"totals"`
	FilteredOwnerships []model.Ownership `json:"filteredOwnerships"`
	Stats              engine.Stats      `json:"stats"`
	Visibility         Visibility        `json:"-"`
}

// Build computes both layers for calc.
//
// Direct rows list every ownership record, hidden or not. Indirect rows are
// computed from the non-hidden ownerships only, skip entries at or below the
// threshold and entries whose id equals any direct edge id (hidden ones
// included), and are sorted by percent descending, then id.
func Build(calc snapshot.Calculation, opts Options) Layers {
	vis := NewVisibility(opts.HiddenDirect, opts.HiddenIndirect)
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	r := engine.NewResolver(calc.Entities, calc.Objects)

	direct := make([]DirectRow, 0, len(calc.Ownerships))
	for _, own := range calc.Ownerships {
		id := engine.DirectID(own)
		direct = append(direct, DirectRow{
			ID:          id,
			Ownership:   own,
			OwnerLabel:  r.Label(own.Owner.Key()),
			ObjectLabel: r.ObjectLabel(own.ObjectID),
			Percent:     own.Percent,
			Hidden:      vis.DirectHidden(id),
		})
	}
	filtered := vis.VisibleOwnerships(calc.Ownerships)

	totals, stats := engine.NewPropagator(engine.WithStrategy(opts.Strategy)).Run(calc.Entities, calc.Objects, filtered)
	directIDs := engine.DirectEdgeIDs(calc.Ownerships)

	var indirect []IndirectRow
	for _, e := range totals.Entries() {
		if e.Percent <= threshold {
			continue
		}
		id := e.ID()
		if _, ok := directIDs[id]; ok {
			continue
		}
		indirect = append(indirect, IndirectRow{
			ID:        id,
			SourceKey: e.SourceKey,
			ObjectID:  e.ObjectID,
			Label:     r.Label(e.SourceKey) + " → " + r.ObjectLabel(e.ObjectID),
			Percent:   e.Percent,
			Hidden:    vis.IndirectHidden(id),
		})
	}
	sort.SliceStable(indirect, func(i, j int) bool {
		if indirect[i].Percent != indirect[j].Percent {
			return indirect[i].Percent > indirect[j].Percent
		}
		return indirect[i].ID < indirect[j].ID
	})

	return Layers{
		Direct:             direct,
		Indirect:           indirect,
		Totals:             totals,
		FilteredOwnerships: filtered,
		Stats:              stats,
		Visibility:         vis,
	}
}

// VisibleIndirect returns the indirect rows that are not hidden.
func (l Layers) VisibleIndirect() []IndirectRow {
	out := make([]IndirectRow, 0, len(l.Indirect))
	for _, row := range l.Indirect {
		if !row.Hidden {
			out = append(out, row)
		}
	}
	return out
}

// Graph builds the renderer view of calc from these layers: visible direct
// edges plus the non-hidden indirect overlay.
func (l Layers) Graph(calc snapshot.Calculation) graphview.Graph {
	hidden := make(map[string]struct{})
	for _, id := range l.Visibility.HiddenIndirect() {
		hidden[id] = struct{}{}
	}
	return graphview.Build(graphview.Input{
		Entities:         calc.Entities,
		Objects:          calc.Objects,
		Totals:           l.Totals,
		HiddenIndirect:   hidden,
		DirectOwnerships: l.FilteredOwnerships,
	})
}
