package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/graphsync"
	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/graphview"
	"github.com/Stoky555/ownership-graph/pkg/layers"
	"github.com/Stoky555/ownership-graph/pkg/model"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, writeCalculation(context.Background(), nil, path, snapshot.Sample(), false))
	return path
}

func sqliteStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestReadCalculation(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"calc.json", "calc.yaml"} {
		got, err := readCalculation(ctx, writeSample(t, name))
		require.NoError(t, err, name)
		assert.Equal(t, snapshot.Sample(), got)
	}

	_, err := readCalculation(ctx, "")
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))

	_, err = readCalculation(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version": 3}`), 0o644))
	_, err = readCalculation(ctx, bad)
	assert.Equal(t, cli.ExitSnapshotParse, cli.ExitCode(err))
}

func TestReadCalculation_Stdin(t *testing.T) {
	data, err := snapshot.Marshal(snapshot.Sample())
	require.NoError(t, err)
	prev := stdin
	stdin = bytes.NewReader(data)
	t.Cleanup(func() { stdin = prev })

	got, err := readCalculation(context.Background(), stdinPath)
	require.NoError(t, err)
	assert.Len(t, got.Ownerships, 11)
}

func TestRunCompute_JSON(t *testing.T) {
	var out bytes.Buffer
	err := runCompute(context.Background(), &out, snapshot.Sample(), computeOptions{Format: "json"})
	require.NoError(t, err)

	var got struct {
		Direct   engine.Totals `json:"direct"`
		Indirect engine.Totals `json:"indirect"`
		Stats    engine.Stats  `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.InDelta(t, 42.0, got.Direct["entity:a"]["1"], 1e-9)
	assert.InDelta(t, 7.30, got.Indirect["entity:a"]["9"], 1e-9)
	assert.InDelta(t, 2.34, got.Indirect["entity:a"]["10"], 1e-9)
	assert.Equal(t, 11, got.Stats.Edges)
}

func TestRunCompute_StrictNames(t *testing.T) {
	var out bytes.Buffer
	err := runCompute(context.Background(), &out, snapshot.Sample(), computeOptions{
		Layer:    "indirect",
		Strict:   true,
		Names:    true,
		Format:   "json",
		Strategy: engine.StrategyAuto,
	})
	require.NoError(t, err)

	var got struct {
		Direct   engine.NamedTotals `json:"direct"`
		Indirect engine.NamedTotals `json:"indirect"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Nil(t, got.Direct)
	assert.InDelta(t, 7.30, got.Indirect["Alpha Holdings"]["Aggregator I"], 1e-9)
	_, ok := got.Indirect["Alpha Holdings"]["Site A"]
	assert.False(t, ok, "one-hop entries are dropped in strict mode")
}

func TestRunCompute_Table(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runCompute(context.Background(), &out, snapshot.Sample(), computeOptions{}))
	s := out.String()
	assert.Contains(t, s, "Direct ownership")
	assert.Contains(t, s, "Indirect ownership")
	assert.Contains(t, s, "Alpha Holdings")
	assert.Contains(t, s, "7.30%")
}

func TestRunCompute_BadOptions(t *testing.T) {
	err := runCompute(context.Background(), &bytes.Buffer{}, snapshot.Sample(), computeOptions{Layer: "sideways"})
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))

	err = runCompute(context.Background(), &bytes.Buffer{}, snapshot.Sample(), computeOptions{Format: "xml"})
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestRunReport(t *testing.T) {
	var out bytes.Buffer
	err := runReport(context.Background(), &out, snapshot.Sample(), reportOptions{
		Layers: layers.Options{HiddenIndirect: []string{"entity:b->object:9"}},
	})
	require.NoError(t, err)
	s := out.String()
	assert.True(t, strings.HasPrefix(s, "Sample structure\n"))
	assert.Contains(t, s, "Aggregator I")
	assert.Contains(t, s, "Alpha Holdings → Aggregator I")
	assert.NotContains(t, s, "Beta Ltd → Aggregator I")

	out.Reset()
	require.NoError(t, runReport(context.Background(), &out, snapshot.Sample(), reportOptions{Format: "json"}))
	var got reportOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Len(t, got.Objects, 9)
	assert.NotEmpty(t, got.Indirect)
}

func TestRunValidate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runValidate(context.Background(), &out, snapshot.Sample()))
	assert.Contains(t, out.String(), "Found 2 entities, 9 objects, 11 ownerships.")
	assert.Contains(t, out.String(), "warning: Aggregator I is owned 110.00% directly")

	calc := snapshot.Sample()
	calc.Ownerships = append(calc.Ownerships, model.Ownership{
		ID: "x", Owner: model.EntityOwner("ghost"), ObjectID: "1", Percent: 1,
	})
	err := runValidate(context.Background(), &bytes.Buffer{}, calc)
	assert.Equal(t, cli.ExitSnapshotParse, cli.ExitCode(err))
}

func TestRunValidate_Cycle(t *testing.T) {
	calc := snapshot.Calculation{
		Version: snapshot.FormatVersion,
		Objects: []model.OwnedObject{{ID: "A", Name: "A"}, {ID: "B", Name: "B"}},
		Ownerships: []model.Ownership{
			{ID: "1", Owner: model.ObjectOwner("A"), ObjectID: "B", Percent: 50},
			{ID: "2", Owner: model.ObjectOwner("B"), ObjectID: "A", Percent: 50},
		},
	}
	var out bytes.Buffer
	require.NoError(t, runValidate(context.Background(), &out, calc))
	assert.Contains(t, out.String(), "warning: ownership cycle")
}

func TestRunDoctor(t *testing.T) {
	var out bytes.Buffer
	err := runDoctor(context.Background(), &out, snapshot.Sample(), nil, false)
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err), "sample has an object owned 110%")
	assert.Contains(t, out.String(), "ownership doctor - Health Check")
	assert.Contains(t, out.String(), "Summary: 5 passed, 1 warnings, 1 errors")
}

func TestRunGraph(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runGraph(context.Background(), &out, snapshot.Sample(), "json", layers.Options{}))
	var g graphview.Graph
	require.NoError(t, json.Unmarshal(out.Bytes(), &g))
	assert.Len(t, g.Nodes, 11)

	out.Reset()
	require.NoError(t, runGraph(context.Background(), &out, snapshot.Sample(), "dot", layers.Options{}))
	s := out.String()
	assert.True(t, strings.HasPrefix(s, "digraph ownership {"))
	assert.Contains(t, s, `"entity:a" [label="Alpha Holdings", shape=box];`)
	assert.Contains(t, s, `"entity:a" -> "object:1" [label="42%", style=solid];`)
	assert.Contains(t, s, "style=dashed")

	err := runGraph(context.Background(), &out, snapshot.Sample(), "png", layers.Options{})
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestRunSample(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runSample(context.Background(), &out, "", false))
	got, err := snapshot.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, snapshot.Sample(), got)

	dest := filepath.Join(t.TempDir(), "sample.yaml")
	out.Reset()
	require.NoError(t, runSample(context.Background(), &out, dest, false))
	assert.Contains(t, out.String(), "Sample calculation written to")
	got, err = readCalculation(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Sample(), got)
}

func TestStoreCommands(t *testing.T) {
	ctx := context.Background()
	st := sqliteStore(t)
	var out bytes.Buffer

	require.NoError(t, runStatus(ctx, &out, st))
	assert.Contains(t, out.String(), "Schema:        missing")

	err := runSave(ctx, &bytes.Buffer{}, st, snapshot.Sample(), "sample", false, false, engine.StrategyPaths)
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err), "saving before migrate is a configuration problem")

	out.Reset()
	require.NoError(t, runMigrate(ctx, &out, st, false, false))
	assert.Contains(t, out.String(), "applied successfully")
	out.Reset()
	require.NoError(t, runMigrate(ctx, &out, st, false, false))
	assert.Contains(t, out.String(), "Schema unchanged, migration skipped.")

	out.Reset()
	require.NoError(t, runSave(ctx, &out, st, snapshot.Sample(), "sample", false, true, engine.StrategyAuto))
	assert.Contains(t, out.String(), "Calculation saved as sample.")
	assert.Contains(t, out.String(), "Results saved: 11 direct")

	indirect, err := st.LoadResults(ctx, "sample", store.LayerIndirect)
	require.NoError(t, err)
	assert.InDelta(t, 7.30, indirect["entity:a"]["9"], 1e-9)

	out.Reset()
	require.NoError(t, runSave(ctx, &out, st, snapshot.Sample(), "sample", false, false, engine.StrategyPaths))
	assert.Contains(t, out.String(), "unchanged, save skipped")

	out.Reset()
	require.NoError(t, runStatus(ctx, &out, st))
	assert.Contains(t, out.String(), "(up to date)")
	assert.Contains(t, out.String(), "Calculations:  1")

	out.Reset()
	require.NoError(t, runList(ctx, &out, st))
	assert.Contains(t, out.String(), "sample  Sample structure")

	out.Reset()
	require.NoError(t, runLoad(ctx, &out, st, "sample", "", false))
	got, err := snapshot.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, snapshot.Sample(), got)

	dest := filepath.Join(t.TempDir(), "exported.json")
	require.NoError(t, runLoad(ctx, &bytes.Buffer{}, st, "sample", dest, false))
	assert.FileExists(t, dest)

	err = runLoad(ctx, &bytes.Buffer{}, st, "missing", "", false)
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err))
	assert.True(t, store.IsNotFoundErr(err))

	require.NoError(t, runDelete(ctx, &bytes.Buffer{}, st, "sample"))
	out.Reset()
	require.NoError(t, runList(ctx, &out, st))
	assert.Equal(t, "No saved calculations.\n", out.String())
}

func TestRunMigrate_DryRun(t *testing.T) {
	st := sqliteStore(t)
	var out bytes.Buffer
	require.NoError(t, runMigrate(context.Background(), &out, st, true, false))
	assert.Contains(t, out.String(), "CREATE TABLE")

	s, err := st.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Migrated)
}

type fakeSyncer struct {
	id string
	g  graphview.Graph
}

func (f *fakeSyncer) Sync(_ context.Context, id string, g graphview.Graph) (graphsync.Result, error) {
	f.id, f.g = id, g
	return graphsync.Result{Nodes: len(g.Nodes), Edges: len(g.Edges)}, nil
}

func TestRunSync(t *testing.T) {
	f := &fakeSyncer{}
	var out bytes.Buffer
	require.NoError(t, runSync(context.Background(), &out, f, "group", snapshot.Sample(), layers.Options{}))
	assert.Equal(t, "group", f.id)
	assert.Len(t, f.g.Nodes, 11)
	assert.Contains(t, out.String(), "Graph group synced: 11 nodes")
}

func TestResolvers(t *testing.T) {
	assert.Equal(t, "b", resolveString("", "b", "c"))
	assert.Equal(t, "", resolveString())
	assert.True(t, resolveBool(false, true))
	assert.False(t, resolveBool())
	assert.InDelta(t, 0.5, resolveFloat(0, 0.5), 0)
	assert.Equal(t, "x", argAt([]string{"x"}, 0))
	assert.Equal(t, "", argAt(nil, 0))
}

func TestRunConfigShow(t *testing.T) {
	c := cli.Config{}
	c.Database.Driver = "postgres"
	c.Database.Host = "db.internal"
	c.Database.Password = "s3cret"

	var out bytes.Buffer
	require.NoError(t, runConfigShow(&out, c.Redacted(), configShowOptions{}))
	assert.Contains(t, out.String(), "host: db.internal")
	assert.NotContains(t, out.String(), "s3cret")

	out.Reset()
	require.NoError(t, runConfigShow(&out, c.Redacted(), configShowOptions{
		Section:    "database",
		Format:     "json",
		Source:     true,
		ConfigPath: "/repo/ownership.yaml",
		Environ:    []string{"HOME=/root", "OWNERSHIP_LOG_LEVEL=debug", "OWNERSHIP_DATABASE_HOST=x"},
	}))
	header, body, ok := strings.Cut(out.String(), "\n\n")
	require.True(t, ok, out.String())
	assert.Equal(t, "Config file: /repo/ownership.yaml\nEnvironment: OWNERSHIP_DATABASE_HOST, OWNERSHIP_LOG_LEVEL", header)
	var db map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &db))
	assert.Equal(t, "db.internal", db["host"])
	assert.Equal(t, "********", db["password"])
	_, hasLog := db["log"]
	assert.False(t, hasLog)

	err := runConfigShow(&bytes.Buffer{}, c, configShowOptions{Section: "cache"})
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
	err = runConfigShow(&bytes.Buffer{}, c, configShowOptions{Format: "toml"})
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--short"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		versionShort = false
	})
	require.NoError(t, rootCmd.Execute())
	assert.NotEmpty(t, strings.TrimSpace(out.String()))
}
