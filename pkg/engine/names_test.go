package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/model"
)

func TestResolveNames(t *testing.T) {
	entities := []model.Entity{{ID: "a", Name: "Alpha Holdings"}}
	objs := []model.OwnedObject{{ID: "1", Name: "Site A"}, {ID: "2", Name: "Warehouse B"}}
	totals := engine.Totals{
		"entity:a":      {"1": 42, "ghost": 3},
		"entity:nobody": {"2": 1},
		"object:1":      {"2": 10},
	}

	named := engine.ResolveNames(totals, entities, objs)

	assert.Equal(t, engine.NamedTotals{
		"Alpha Holdings": {
			"Site A":                 42,
			"Unknown object (ghost)": 3,
		},
		"Unknown entity (nobody)": {"Warehouse B": 1},
		"Site A":                  {"Warehouse B": 10},
	}, named)
}

func TestResolveNames_CollisionIsDeterministic(t *testing.T) {
	entities := []model.Entity{{ID: "a", Name: "Same"}, {ID: "b", Name: "Same"}}
	objs := []model.OwnedObject{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}}
	totals := engine.Totals{
		"entity:a": {"1": 10},
		"entity:b": {"2": 20},
	}

	for range 10 {
		named := engine.ResolveNames(totals, entities, objs)
		require.Len(t, named, 1)
		assert.Equal(t, map[string]float64{"Two": 20}, named["Same"])
	}
}

func TestResolveNames_Empty(t *testing.T) {
	assert.Empty(t, engine.ResolveNames(engine.Totals{}, nil, nil))
}

func TestResolver(t *testing.T) {
	r := engine.NewResolver(
		[]model.Entity{{ID: "a", Name: "Alpha"}},
		[]model.OwnedObject{{ID: "1", Name: "Site A"}},
	)

	assert.Equal(t, "Alpha", r.OwnerName(model.EntityOwner("a")))
	assert.Equal(t, "Site A", r.OwnerName(model.ObjectOwner("1")))
	assert.Equal(t, "Unknown entity (z)", r.EntityName("z"))
	assert.Equal(t, "Unknown object (z)", r.SourceName("object:z"))
	assert.Equal(t, "Site A", r.SourceName("1"))

	assert.Equal(t, "Alpha", r.Label("entity:a"))
	assert.Equal(t, "z", r.Label("entity:z"))
	assert.Equal(t, "Site A", r.Label("object:1"))
	assert.Equal(t, "9", r.ObjectLabel("9"))

	// Keys with an unknown kind are not split.
	assert.Equal(t, "Unknown object (group:a)", r.SourceName("group:a"))
	assert.Equal(t, "group:a", r.Label("group:a"))
}

func TestDetectCycles(t *testing.T) {
	o := model.ObjectOwner

	t.Run("acyclic", func(t *testing.T) {
		_, _, ownerships := convergent()
		assert.Empty(t, engine.DetectCycles(ownerships))
	})

	t.Run("two node cycle", func(t *testing.T) {
		cycles := engine.DetectCycles([]model.Ownership{
			own(o("A"), "B", 50),
			own(o("B"), "A", 50),
		})
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"object:A", "object:B", "object:A"}, cycles[0])
		assert.Equal(t, "object:A → object:B → object:A", engine.FormatCycle(cycles[0]))
	})

	t.Run("self loop", func(t *testing.T) {
		cycles := engine.DetectCycles([]model.Ownership{own(o("1"), "1", 10)})
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"object:1", "object:1"}, cycles[0])
	})

	t.Run("entity edges never close a cycle", func(t *testing.T) {
		cycles := engine.DetectCycles([]model.Ownership{
			own(model.EntityOwner("1"), "1", 10),
		})
		assert.Empty(t, cycles)
	})
}

func TestIDs(t *testing.T) {
	direct := model.Ownership{ID: "r1", Owner: model.EntityOwner("a"), ObjectID: "1", Percent: 10}

	assert.Equal(t, "entity:a->object:1", engine.DirectID(direct))
	assert.Equal(t, "object:5->object:9", engine.IndirectID("object:5", "9"))
	assert.Equal(t, engine.DirectID(direct), engine.IndirectID("entity:a", "1"))

	entry := engine.Entry{SourceKey: "entity:a", ObjectID: "1", Percent: 10}
	assert.Equal(t, "entity:a->object:1", entry.ID())
}

func TestStrictlyIndirect(t *testing.T) {
	entities, objs, ownerships := convergent()
	totals := engine.ComputeIndirect(entities, objs, ownerships)

	strict := engine.StrictlyIndirect(totals, ownerships)

	_, ok := strict.Get("entity:a", "1")
	assert.False(t, ok, "one-hop entry equals a direct edge")
	pct, ok := strict.Get("entity:a", "9")
	assert.True(t, ok)
	assert.InDelta(t, 7.30, pct, 1e-9)
	assert.Equal(t, totals.Len()-len(engine.DirectEdgeIDs(ownerships)), strict.Len())

	// The input table is left intact.
	_, ok = totals.Get("entity:a", "1")
	assert.True(t, ok)
}

func TestTotalsEntriesSorted(t *testing.T) {
	totals := engine.Totals{
		"object:2": {"3": 1},
		"entity:b": {"9": 2, "10": 3},
	}

	entries := totals.Entries()

	assert.Equal(t, []engine.Entry{
		{SourceKey: "entity:b", ObjectID: "10", Percent: 3},
		{SourceKey: "entity:b", ObjectID: "9", Percent: 2},
		{SourceKey: "object:2", ObjectID: "3", Percent: 1},
	}, entries)
	assert.Equal(t, 3, totals.Len())
}
