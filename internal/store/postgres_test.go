package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
	"github.com/Stoky555/ownership-graph/test/testutil"
)

func TestPostgres(t *testing.T) {
	dsn := testutil.PostgresDSN(t)

	for _, driver := range []string{"pgx", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s, err := store.Open(ctx, driver, dsn)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })

			_, err = s.Migrate(ctx, store.MigrateOptions{})
			require.NoError(t, err)

			sample := snapshot.Sample()
			res, err := s.SaveCalculation(ctx, "sample-"+driver, sample, store.SaveOptions{})
			require.NoError(t, err)

			loaded, err := s.LoadCalculation(ctx, res.ID)
			require.NoError(t, err)
			assert.Equal(t, sample, loaded)

			again, err := s.SaveCalculation(ctx, res.ID, sample, store.SaveOptions{})
			require.NoError(t, err)
			assert.True(t, again.Skipped)

			indirect := engine.ComputeIndirect(sample.Entities, sample.Objects, sample.Ownerships)
			require.NoError(t, s.SaveResults(ctx, res.ID, store.LayerIndirect, indirect))
			got, err := s.LoadResults(ctx, res.ID, store.LayerIndirect)
			require.NoError(t, err)
			assert.Equal(t, indirect, got)

			st, err := s.Status(ctx)
			require.NoError(t, err)
			assert.True(t, st.UpToDate)
			assert.GreaterOrEqual(t, st.Calculations, 1)

			require.NoError(t, s.DeleteCalculation(ctx, res.ID))
		})
	}
}
