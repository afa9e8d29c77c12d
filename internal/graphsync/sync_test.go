package graphsync_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Stoky555/ownership-graph/internal/graphsync"
	"github.com/Stoky555/ownership-graph/pkg/graphview"
	"github.com/Stoky555/ownership-graph/pkg/layers"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var syncedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleGraph() graphview.Graph {
	calc := snapshot.Sample()
	return layers.Build(calc, layers.Options{}).Graph(calc)
}

func TestNodeRows(t *testing.T) {
	g := graphview.Graph{Nodes: []graphview.Node{
		{ID: "entity:a", Kind: "entity", Label: "Alpha"},
		{ID: "object:1", Kind: "object", Label: "Site A"},
	}}
	rows := graphsync.NodeRows("calc-1", g, syncedAt)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{
		"calculation_id": "calc-1",
		"id":             "entity:a",
		"kind":           "entity",
		"label":          "Alpha",
		"synced_at":      "2025-01-02T03:04:05Z",
	}, rows[0])
	assert.Equal(t, "object", rows[1]["kind"])
}

func TestEdgeRows(t *testing.T) {
	g := graphview.Graph{Edges: []graphview.Edge{{
		ID: "entity:a->object:1", Source: "entity:a", Target: "object:1",
		Kind: graphview.EdgeDirect, Label: "42%", Percent: 42,
	}}}
	rows := graphsync.EdgeRows("calc-1", g, syncedAt)
	require.Len(t, rows, 1)
	assert.Equal(t, "entity:a", rows[0]["source"])
	assert.Equal(t, "object:1", rows[0]["target"])
	assert.Equal(t, "direct", rows[0]["kind"])
	assert.InDelta(t, 42.0, rows[0]["percent"], 0)

	assert.Empty(t, graphsync.EdgeRows("calc-1", graphview.Graph{}, syncedAt))
}

func TestSampleGraphRows(t *testing.T) {
	g := sampleGraph()
	nodes := graphsync.NodeRows("sample", g, syncedAt)
	edges := graphsync.EdgeRows("sample", g, syncedAt)
	assert.Len(t, nodes, len(g.Nodes))
	assert.Len(t, edges, len(g.Edges))

	ids := map[any]bool{}
	for _, r := range nodes {
		ids[r["id"]] = true
	}
	for _, r := range edges {
		assert.True(t, ids[r["source"]], "source %v must be a node", r["source"])
		assert.True(t, ids[r["target"]], "target %v must be a node", r["target"])
	}
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := graphsync.New(context.Background(), graphsync.Config{}, nil)
	assert.ErrorIs(t, err, graphsync.ErrNotConfigured)
}

func TestSync_Neo4j(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Neo4j container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "neo4j:5",
			ExposedPorts: []string{"7687/tcp"},
			Env:          map[string]string{"NEO4J_AUTH": "neo4j/ownership-test"},
			WaitingFor:   wait.ForLog("Started.").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687/tcp")
	require.NoError(t, err)

	client, err := graphsync.New(ctx, graphsync.Config{
		URI:      fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Password: "ownership-test",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	g := sampleGraph()
	res, err := client.Sync(ctx, "sample", g)
	require.NoError(t, err)
	assert.Equal(t, graphsync.Result{Nodes: len(g.Nodes), Edges: len(g.Edges)}, res)

	owners, err := client.Owners(ctx, "sample", "object:9", graphview.EdgeDirect)
	require.NoError(t, err)
	assert.Equal(t, []string{"object:5", "object:6", "object:8"}, owners)

	// A second sync replaces rather than duplicates.
	_, err = client.Sync(ctx, "sample", g)
	require.NoError(t, err)
	owners, err = client.Owners(ctx, "sample", "object:9", graphview.EdgeDirect)
	require.NoError(t, err)
	assert.Len(t, owners, 3)

	require.NoError(t, client.Remove(ctx, "sample"))
	owners, err = client.Owners(ctx, "sample", "object:9", graphview.EdgeDirect)
	require.NoError(t, err)
	assert.Empty(t, owners)
}
