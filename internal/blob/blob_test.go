package blob_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/internal/blob"
	"github.com/Stoky555/ownership-graph/internal/blob/core"
	"github.com/Stoky555/ownership-graph/internal/blob/memory"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want blob.Location
	}{
		{"s3://calcs/team/a.json", blob.Location{Driver: core.DriverS3, Bucket: "calcs", Key: "team/a.json"}},
		{"mem://scratch.json", blob.Location{Driver: core.DriverMemory, Key: "scratch.json"}},
		{"file://data/a.yaml", blob.Location{Driver: core.DriverFilesystem, Root: "data", Key: "a.yaml"}},
		{"data/sub/a.json", blob.Location{Driver: core.DriverFilesystem, Root: filepath.Join("data", "sub"), Key: "a.json"}},
		{"a.json", blob.Location{Driver: core.DriverFilesystem, Root: ".", Key: "a.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := blob.ParseLocation(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocation_Errors(t *testing.T) {
	for _, raw := range []string{"", "s3://bucket-only", "s3:///key", "mem://", "ftp://host/x"} {
		_, err := blob.ParseLocation(raw)
		assert.ErrorIs(t, err, core.ErrInvalidKey, raw)
	}
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "s3://b/k.json", blob.Location{Driver: core.DriverS3, Bucket: "b", Key: "k.json"}.String())
	assert.Equal(t, "mem://k", blob.Location{Driver: core.DriverMemory, Key: "k"}.String())
	assert.Equal(t, filepath.Join("dir", "k.json"), blob.Location{Driver: core.DriverFilesystem, Root: "dir", Key: "k.json"}.String())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := blob.Open(ctx, blob.Options{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, core.DriverFilesystem, st.Driver())

	shared := memory.New()
	st, err = blob.Open(ctx, blob.Options{Driver: "memory", Memory: shared})
	require.NoError(t, err)
	assert.Same(t, shared, st)

	_, err = blob.Open(ctx, blob.Options{Driver: "gcs"})
	assert.Error(t, err)
}

func TestCalculationRoundTrip(t *testing.T) {
	ctx := context.Background()
	sample := snapshot.Sample()

	for _, key := range []string{"sample.json", "sample.yaml", "nested/sample.yml"} {
		t.Run(key, func(t *testing.T) {
			for _, st := range []blob.Store{memory.New(), mustFS(t)} {
				info, err := blob.WriteCalculation(ctx, st, key, sample)
				require.NoError(t, err)
				assert.Positive(t, info.Size)

				got, err := blob.ReadCalculation(ctx, st, key)
				require.NoError(t, err)
				assert.Equal(t, sample, got)
			}
		})
	}
}

func TestWriteCalculation_Metadata(t *testing.T) {
	st := memory.New()
	info, err := blob.WriteCalculation(context.Background(), st, "a.yaml", snapshot.Sample())
	require.NoError(t, err)
	assert.Equal(t, "application/yaml", info.ContentType)
	assert.Equal(t, "Sample structure", info.Metadata["name"])
	assert.Equal(t, "1", info.Metadata["format-version"])
}

func TestReadCalculation_Errors(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	_, err := blob.ReadCalculation(ctx, st, "missing.json")
	assert.True(t, core.IsNotFoundErr(err))

	_, err = st.Put(ctx, "bad.json", strings.NewReader(`{"version": 2}`), core.PutOptions{})
	require.NoError(t, err)
	_, err = blob.ReadCalculation(ctx, st, "bad.json")
	assert.True(t, snapshot.IsParseErr(err))
}

func TestOpenLocation(t *testing.T) {
	dir := t.TempDir()
	loc, err := blob.ParseLocation(filepath.Join(dir, "a.json"))
	require.NoError(t, err)

	st, err := blob.OpenLocation(context.Background(), loc, blob.Options{})
	require.NoError(t, err)
	_, err = blob.WriteCalculation(context.Background(), st, loc.Key, snapshot.Sample())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "a.json"))
}

func mustFS(t *testing.T) blob.Store {
	t.Helper()
	st, err := blob.Open(context.Background(), blob.Options{Driver: "fs", Root: t.TempDir()})
	require.NoError(t, err)
	return st
}
