package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/store"
)

var (
	migrateDB     string
	migrateDryRun bool
	migrateForce  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the store schema",
	Long:  `Create or update the calculation tables in the configured database.`,
	Example: `  # Apply schema to database
  ownership migrate --db postgres://localhost/ownership

  # Preview migration without applying
  ownership migrate --dry-run

  # Force re-apply even if schema unchanged
  ownership migrate --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), migrateDB)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return runMigrate(cmd.Context(), cmd.OutOrStdout(), st, migrateDryRun, migrateForce)
	},
}

func init() {
	f := migrateCmd.Flags()
	f.StringVar(&migrateDB, "db", "", "database URL")
	f.BoolVar(&migrateDryRun, "dry-run", false, "output migration SQL without applying")
	f.BoolVar(&migrateForce, "force", false, "force migration even if schema unchanged")
}

func runMigrate(ctx context.Context, w io.Writer, st *store.Store, dryRun, force bool) error {
	opts := store.MigrateOptions{Force: force}

	if dryRun {
		opts.DryRun = w
		if !quiet {
			fmt.Fprintln(os.Stderr, "-- Dry-run mode: SQL will be output but not applied")
			fmt.Fprintln(os.Stderr, "")
		}
	} else if !quiet {
		fmt.Fprintln(w, "Applying store schema...")
	}

	res, err := st.Migrate(ctx, opts)
	if err != nil {
		return cli.GeneralError("migration failed", err)
	}

	if dryRun || quiet {
		return nil
	}
	if res.Skipped {
		fmt.Fprintln(w, "Schema unchanged, migration skipped.")
		fmt.Fprintln(w, "Use --force to re-apply.")
	} else {
		fmt.Fprintf(w, "Store schema version %d applied successfully.\n", res.Version)
	}
	return nil
}
