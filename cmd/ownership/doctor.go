package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/doctor"
	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var (
	doctorDB        string
	doctorWithStore bool
	doctorVerbose   bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [calculation]",
	Short: "Run health checks",
	Long:  `Run health checks on a calculation and, with --with-store, on the store schema.`,
	Example: `  # Run health checks
  ownership doctor calc.json

  # Include the store and show details
  ownership doctor calc.json --with-store --details`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, label, err := readDocument(ctx, cfg.ResolvedSnapshot(argAt(args, 0)))
		if err != nil {
			return err
		}
		// Decode without validation so the report can explain invalid records.
		var calc snapshot.Calculation
		if err := yaml.Unmarshal(data, &calc); err != nil {
			return cli.SnapshotParseError("decoding "+label, fmt.Errorf("%w: %v", snapshot.ErrMalformed, err))
		}

		var st *store.Store
		if doctorWithStore || doctorDB != "" {
			if st, err = openStore(ctx, doctorDB); err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
		}
		return runDoctor(ctx, cmd.OutOrStdout(), calc, st, doctorVerbose || verbose > 0)
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL (implies --with-store)")
	f.BoolVar(&doctorWithStore, "with-store", false, "also check the configured store")
	f.BoolVar(&doctorVerbose, "details", false, "show detailed output")
}

func runDoctor(ctx context.Context, w io.Writer, calc snapshot.Calculation, st *store.Store, verboseFlag bool) error {
	if !quiet {
		fmt.Fprintln(w, "ownership doctor - Health Check")
	}

	var opts []doctor.Option
	if st != nil {
		opts = append(opts, doctor.WithStore(st))
	}
	r, err := doctor.New(calc, opts...).Run(ctx)
	if err != nil {
		return cli.GeneralError("running doctor", err)
	}

	r.Print(w, verboseFlag)

	if r.HasErrors() {
		return cli.GeneralError("health checks failed", nil)
	}
	return nil
}
