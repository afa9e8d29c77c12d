package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/report"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var validateCmd = &cobra.Command{
	Use:   "validate [calculation]",
	Short: "Validate a calculation file",
	Long: `Validate a calculation file: format version, structure, field ranges and
referential integrity. Objects owned more than 100% and ownership cycles are
reported as warnings.`,
	Example: `  # Validate a specific file
  ownership validate calc.json

  # Validate the snapshot named in ownership.yaml
  ownership validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		calc, err := readCalculation(cmd.Context(), cfg.ResolvedSnapshot(argAt(args, 0)))
		if err != nil {
			return err
		}
		return runValidate(cmd.Context(), cmd.OutOrStdout(), calc)
	},
}

func runValidate(_ context.Context, w io.Writer, calc snapshot.Calculation) error {
	if err := snapshot.CheckReferences(calc); err != nil {
		return cli.SnapshotParseError("checking references", err)
	}
	if quiet {
		return nil
	}

	fmt.Fprintf(w, "Calculation is valid. Found %d entities, %d objects, %d ownerships.\n",
		len(calc.Entities), len(calc.Objects), len(calc.Ownerships))

	for _, s := range report.Summarize(calc) {
		if s.Status == report.StatusExceeds {
			fmt.Fprintf(w, "  warning: %s is owned %.2f%% directly\n", s.Object, s.Total)
		}
	}
	for _, c := range engine.DetectCycles(calc.Ownerships) {
		fmt.Fprintf(w, "  warning: ownership cycle %s\n", engine.FormatCycle(c))
	}
	return nil
}
