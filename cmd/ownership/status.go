package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/store"
)

var statusDB string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current store status",
	Long:  `Show the store's migration state and the number of saved calculations.`,
	Example: `  # Check status
  ownership status --db postgres://localhost/ownership`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), statusDB)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return runStatus(cmd.Context(), cmd.OutOrStdout(), st)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDB, "db", "", "database URL")
}

func runStatus(ctx context.Context, w io.Writer, st *store.Store) error {
	s, err := st.Status(ctx)
	if err != nil {
		return cli.GeneralError("getting status", err)
	}

	fmt.Fprintf(w, "Driver:        %s\n", s.Driver)
	if !s.Migrated {
		fmt.Fprintln(w, "Schema:        missing")
		fmt.Fprintln(w, "\nRun 'ownership migrate' to create the store schema.")
		return nil
	}
	if s.UpToDate {
		fmt.Fprintf(w, "Schema:        version %d (up to date)\n", s.LastMigration.Version)
	} else {
		fmt.Fprintf(w, "Schema:        version %d (outdated)\n", s.LastMigration.Version)
	}
	fmt.Fprintf(w, "Applied at:    %s\n", s.LastMigration.AppliedAt)
	fmt.Fprintf(w, "Calculations:  %d\n", s.Calculations)

	if !s.UpToDate {
		fmt.Fprintln(w, "\nSchema differs from this build. Run 'ownership migrate'.")
	}
	return nil
}
