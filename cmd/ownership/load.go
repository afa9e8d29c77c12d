package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/store"
)

var (
	loadDB   string
	loadList bool
	loadYAML bool
	loadDrop bool
)

var loadCmd = &cobra.Command{
	Use:   "load [id] [destination]",
	Short: "Load a calculation from the store",
	Long: `Load a saved calculation and print it or write it to a destination.
--list shows the saved calculations instead; --delete removes one.`,
	Example: `  # List saved calculations
  ownership load --list

  # Export to a file
  ownership load group-2025 group.json

  # Delete
  ownership load group-2025 --delete`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !loadList && len(args) == 0 {
			return cli.ConfigError("calculation id is required (or use --list)", nil)
		}
		st, err := openStore(cmd.Context(), loadDB)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		w := cmd.OutOrStdout()
		switch {
		case loadList:
			return runList(cmd.Context(), w, st)
		case loadDrop:
			return runDelete(cmd.Context(), w, st, args[0])
		default:
			return runLoad(cmd.Context(), w, st, args[0], argAt(args, 1), loadYAML)
		}
	},
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&loadDB, "db", "", "database URL")
	f.BoolVar(&loadList, "list", false, "list saved calculations")
	f.BoolVar(&loadYAML, "yaml", false, "print YAML instead of JSON")
	f.BoolVar(&loadDrop, "delete", false, "delete the calculation instead of loading it")
}

func runLoad(ctx context.Context, w io.Writer, st *store.Store, id, dest string, asYAML bool) error {
	calc, err := st.LoadCalculation(ctx, id)
	if err != nil {
		return storeError("loading calculation", err)
	}
	if err := writeCalculation(ctx, w, dest, calc, asYAML); err != nil {
		return err
	}
	if dest != "" && !quiet {
		fmt.Fprintf(w, "Calculation %s written to %s\n", id, dest)
	}
	return nil
}

func runList(ctx context.Context, w io.Writer, st *store.Store) error {
	infos, err := st.ListCalculations(ctx)
	if err != nil {
		return storeError("listing calculations", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "No saved calculations.")
		return nil
	}
	for _, info := range infos {
		name := info.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%s  %s  updated %s\n", info.ID, name, info.UpdatedAt)
	}
	return nil
}

func runDelete(ctx context.Context, w io.Writer, st *store.Store, id string) error {
	if err := st.DeleteCalculation(ctx, id); err != nil {
		return storeError("deleting calculation", err)
	}
	if !quiet {
		fmt.Fprintf(w, "Calculation %s deleted.\n", id)
	}
	return nil
}
