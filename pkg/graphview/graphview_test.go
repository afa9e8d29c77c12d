package graphview_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/graphview"
	"github.com/Stoky555/ownership-graph/pkg/model"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

func sampleInput() graphview.Input {
	calc := snapshot.Sample()
	return graphview.Input{
		Entities:         calc.Entities,
		Objects:          calc.Objects,
		Totals:           engine.ComputeIndirect(calc.Entities, calc.Objects, calc.Ownerships),
		DirectOwnerships: calc.Ownerships,
	}
}

func edgeByID(g graphview.Graph, id string) (graphview.Edge, bool) {
	for _, e := range g.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return graphview.Edge{}, false
}

func TestBuild_NodesAndEdges(t *testing.T) {
	g := graphview.Build(sampleInput())

	require.Len(t, g.Nodes, 11)
	assert.Equal(t, graphview.Node{ID: "entity:a", Kind: model.KindEntity, Label: "Alpha Holdings"}, g.Nodes[0])
	assert.Equal(t, "object:1", g.Nodes[2].ID)

	direct, ok := edgeByID(g, "entity:a->object:1")
	require.True(t, ok)
	assert.Equal(t, graphview.EdgeDirect, direct.Kind)
	assert.Equal(t, "42%", direct.Label)

	indirect, ok := edgeByID(g, "entity:a->object:9")
	require.True(t, ok)
	assert.Equal(t, graphview.EdgeIndirect, indirect.Kind)
	assert.Equal(t, "entity:a", indirect.Source)
	assert.Equal(t, "object:9", indirect.Target)
	assert.Equal(t, "7.3%", indirect.Label)

	ids := map[string]int{}
	for _, e := range g.Edges {
		ids[e.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "edge %s emitted more than once", id)
	}
}

func TestBuild_HiddenIndirect(t *testing.T) {
	in := sampleInput()
	in.HiddenIndirect = map[string]struct{}{"entity:a->object:9": {}}

	g := graphview.Build(in)

	_, ok := edgeByID(g, "entity:a->object:9")
	assert.False(t, ok)
	_, ok = edgeByID(g, "entity:a->object:10")
	assert.True(t, ok)
}

func TestBuild_SmallIndirectDropped(t *testing.T) {
	in := graphview.Input{
		Entities: []model.Entity{{ID: "a", Name: "A"}},
		Objects:  []model.OwnedObject{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}},
		Totals:   engine.Totals{"entity:a": {"1": 50, "2": 0.01}},
		DirectOwnerships: []model.Ownership{
			{ID: "x", Owner: model.EntityOwner("a"), ObjectID: "1", Percent: 50},
		},
	}

	g := graphview.Build(in)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, graphview.EdgeDirect, g.Edges[0].Kind)
}

func TestBuild_DuplicateDirectRecordsMerge(t *testing.T) {
	a := model.EntityOwner("a")
	in := graphview.Input{
		Entities: []model.Entity{{ID: "a"}},
		Objects:  []model.OwnedObject{{ID: "1"}},
		DirectOwnerships: []model.Ownership{
			{ID: "x", Owner: a, ObjectID: "1", Percent: 10},
			{ID: "y", Owner: a, ObjectID: "1", Percent: 5},
		},
	}

	g := graphview.Build(in)

	require.Len(t, g.Edges, 1)
	assert.InDelta(t, 15.0, g.Edges[0].Percent, 1e-9)
	assert.Equal(t, "15%", g.Edges[0].Label)
}

func TestBuild_PrunesDanglingEdges(t *testing.T) {
	in := graphview.Input{
		Objects: []model.OwnedObject{{ID: "1"}},
		Totals:  engine.Totals{"object:1": {"404": 30}},
		DirectOwnerships: []model.Ownership{
			{ID: "x", Owner: model.EntityOwner("ghost"), ObjectID: "1", Percent: 10},
		},
	}

	g := graphview.Build(in)

	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
	assert.NotNil(t, g.Edges)
}

func TestNeighbors(t *testing.T) {
	g := graphview.Build(sampleInput())

	n := g.Neighbors("object:9")
	assert.Contains(t, n, "object:5")
	assert.Contains(t, n, "object:10")
	assert.Contains(t, n, "entity:a")
	assert.NotContains(t, n, "object:9")
}

func TestPercentLabel(t *testing.T) {
	assert.Equal(t, "42%", graphview.PercentLabel(42))
	assert.Equal(t, "2.34%", graphview.PercentLabel(2.34))
}
