// Package graphview builds the node and edge lists a graph renderer draws.
//
// Positions are left to the renderer. The package only decides which edges
// exist, how they are identified, and how they are labelled.
package graphview

import (
	"strconv"

	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/model"
)

// MinIndirectPercent is the cut-off for indirect edges, in percent.
// Edges at or below it are not drawn.
const MinIndirectPercent = 0.01

// EdgeKind distinguishes entered ownership from derived ownership.
type EdgeKind string

const (
	EdgeDirect   EdgeKind = "direct"
	EdgeIndirect EdgeKind = "indirect"
)

// Node is an entity or object, keyed by its source key.
type Node struct {
	ID    string     `json:"id"`
	Kind  model.Kind `json:"kind"`
	Label string     `json:"label"`
}

// Edge connects two nodes.
type Edge struct {
	ID      string   `json:"id"`
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Kind    EdgeKind `json:"kind"`
	Label   string   `json:"label"`
	Percent float64  `json:"percent"`
}

// Graph is the renderer input.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Input is everything Build needs.
type Input struct {
	Entities []model.Entity
	Objects  []model.OwnedObject

	// Totals is the indirect table, usually computed from DirectOwnerships.
	Totals engine.Totals

	// HiddenIndirect holds indirect edge ids the viewer switched off.
	HiddenIndirect map[string]struct{}

	// DirectOwnerships are the visible direct records, already filtered.
	DirectOwnerships []model.Ownership
}

// Build assembles the graph.
//
// Indirect edges are drawn for entries above MinIndirectPercent that are not
// hidden and do not share an id with a direct edge. Direct edges are drawn
// once per direct id, with duplicate records summed. Edges whose endpoints are
// not nodes are dropped.
func Build(in Input) Graph {
	nodes := make([]Node, 0, len(in.Entities)+len(in.Objects))
	ids := make(map[string]struct{}, cap(nodes))
	push := func(n Node) {
		if _, ok := ids[n.ID]; ok {
			return
		}
		ids[n.ID] = struct{}{}
		nodes = append(nodes, n)
	}
	for _, e := range in.Entities {
		push(Node{ID: model.EntityOwner(e.ID).Key(), Kind: model.KindEntity, Label: e.Name})
	}
	for _, o := range in.Objects {
		push(Node{ID: model.ObjectKey(o.ID), Kind: model.KindObject, Label: o.Name})
	}

	edges := make([]Edge, 0, len(in.DirectOwnerships))
	directIDs := engine.DirectEdgeIDs(in.DirectOwnerships)
	for _, e := range in.Totals.Entries() {
		if e.Percent <= MinIndirectPercent {
			continue
		}
		id := e.ID()
		if _, hidden := in.HiddenIndirect[id]; hidden {
			continue
		}
		if _, dup := directIDs[id]; dup {
			continue
		}
		edges = append(edges, Edge{
			ID:      id,
			Source:  e.SourceKey,
			Target:  model.ObjectKey(e.ObjectID),
			Kind:    EdgeIndirect,
			Label:   PercentLabel(e.Percent),
			Percent: e.Percent,
		})
	}

	direct := engine.ComputeDirect(in.DirectOwnerships)
	seen := make(map[string]struct{}, len(directIDs))
	for _, own := range in.DirectOwnerships {
		id := engine.DirectID(own)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pct, _ := direct.Get(own.Owner.Key(), own.ObjectID)
		edges = append(edges, Edge{
			ID:      id,
			Source:  own.Owner.Key(),
			Target:  model.ObjectKey(own.ObjectID),
			Kind:    EdgeDirect,
			Label:   PercentLabel(pct),
			Percent: pct,
		})
	}

	valid := edges[:0]
	for _, e := range edges {
		_, src := ids[e.Source]
		_, dst := ids[e.Target]
		if src && dst {
			valid = append(valid, e)
		}
	}

	return Graph{Nodes: nodes, Edges: valid}
}

// PercentLabel formats a percentage with the shortest exact representation,
// e.g. "7.3%" or "42%".
func PercentLabel(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

// Neighbors returns the ids of nodes sharing an edge with id, in edge order.
func (g Graph) Neighbors(id string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, e := range g.Edges {
		var other string
		switch id {
		case e.Source:
			other = e.Target
		case e.Target:
			other = e.Source
		default:
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out
}
