package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var (
	saveDB       string
	saveID       string
	saveForce    bool
	saveResults  bool
	saveStrategy string
)

var saveCmd = &cobra.Command{
	Use:   "save [calculation]",
	Short: "Save a calculation to the store",
	Long: `Save a calculation to the store. Saving unchanged content is skipped
unless --force is set. With --results the direct and indirect tables are
computed and saved alongside it.`,
	Example: `  # Save under a generated id
  ownership save calc.json

  # Save under a fixed id, with results
  ownership save calc.json --id group-2025 --results`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		strategy, err := resolveStrategy(saveStrategy)
		if err != nil {
			return err
		}
		calc, err := readCalculation(ctx, cfg.ResolvedSnapshot(argAt(args, 0)))
		if err != nil {
			return err
		}
		st, err := openStore(ctx, saveDB)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return runSave(ctx, cmd.OutOrStdout(), st, calc, saveID, saveForce, saveResults, strategy)
	},
}

func init() {
	f := saveCmd.Flags()
	f.StringVar(&saveDB, "db", "", "database URL")
	f.StringVar(&saveID, "id", "", "calculation id (default: generated)")
	f.BoolVar(&saveForce, "force", false, "rewrite even if the content is unchanged")
	f.BoolVar(&saveResults, "results", false, "also compute and save direct and indirect totals")
	f.StringVar(&saveStrategy, "strategy", "", "propagation strategy for --results: paths or auto")
}

func runSave(ctx context.Context, w io.Writer, st *store.Store, calc snapshot.Calculation,
	id string, force, results bool, strategy engine.Strategy,
) error {
	res, err := st.SaveCalculation(ctx, id, calc, store.SaveOptions{Force: force})
	if err != nil {
		return storeError("saving calculation", err)
	}
	if !quiet {
		if res.Skipped {
			fmt.Fprintf(w, "Calculation %s unchanged, save skipped.\n", res.ID)
		} else {
			fmt.Fprintf(w, "Calculation saved as %s.\n", res.ID)
		}
	}
	if !results {
		return nil
	}

	direct := engine.ComputeDirect(calc.Ownerships)
	indirect, _ := engine.NewPropagator(engine.WithStrategy(strategy)).Run(calc.Entities, calc.Objects, calc.Ownerships)
	if err := st.SaveResults(ctx, res.ID, store.LayerDirect, direct); err != nil {
		return storeError("saving direct results", err)
	}
	if err := st.SaveResults(ctx, res.ID, store.LayerIndirect, indirect); err != nil {
		return storeError("saving indirect results", err)
	}
	if !quiet {
		fmt.Fprintf(w, "Results saved: %d direct, %d indirect entries.\n", direct.Len(), indirect.Len())
	}
	return nil
}
