package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/report"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var (
	computeStrategy string
	computeLayer    string
	computeStrict   bool
	computeNames    bool
	computeFormat   string
	computeLocale   string
)

var computeCmd = &cobra.Command{
	Use:   "compute [calculation]",
	Short: "Compute direct and indirect ownership",
	Long: `Compute the aggregated direct totals and the indirect (multi-hop) totals
of a calculation. Indirect totals include one-hop entries unless --strict is set.`,
	Example: `  # Both tables for a local file
  ownership compute calc.json

  # Indirect totals only, as JSON keyed by display name
  ownership compute calc.json --layer indirect --names --format json

  # Read from S3
  ownership compute s3://calcs/group.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := resolveStrategy(computeStrategy)
		if err != nil {
			return err
		}
		calc, err := readCalculation(cmd.Context(), cfg.ResolvedSnapshot(argAt(args, 0)))
		if err != nil {
			return err
		}
		return runCompute(cmd.Context(), cmd.OutOrStdout(), calc, computeOptions{
			Strategy: strategy,
			Layer:    computeLayer,
			Strict:   computeStrict,
			Names:    computeNames,
			Format:   computeFormat,
			Locale:   resolveString(computeLocale, cfg.Report.Locale),
		})
	},
}

func init() {
	f := computeCmd.Flags()
	f.StringVar(&computeStrategy, "strategy", "", "propagation strategy: paths or auto")
	f.StringVar(&computeLayer, "layer", "all", "tables to compute: direct, indirect or all")
	f.BoolVar(&computeStrict, "strict", false, "drop indirect entries that coincide with a direct edge")
	f.BoolVar(&computeNames, "names", false, "key output by display name instead of id")
	f.StringVar(&computeFormat, "format", "table", "output format: table or json")
	f.StringVar(&computeLocale, "locale", "", "number formatting locale for tables (e.g. en, de)")
}

type computeOptions struct {
	Strategy engine.Strategy
	Layer    string
	Strict   bool
	Names    bool
	Format   string
	Locale   string
}

// computeOutput is the JSON shape of compute. Unused tables are omitted.
type computeOutput struct {
	Direct   any           `json:"direct,omitempty"`
	Indirect any           `json:"indirect,omitempty"`
	Stats    *engine.Stats `json:"stats,omitempty"`
}

func runCompute(_ context.Context, w io.Writer, calc snapshot.Calculation, opts computeOptions) error {
	var wantDirect, wantIndirect bool
	switch opts.Layer {
	case "", "all":
		wantDirect, wantIndirect = true, true
	case "direct":
		wantDirect = true
	case "indirect":
		wantIndirect = true
	default:
		return cli.ConfigError(fmt.Sprintf("unknown layer %q (want direct, indirect or all)", opts.Layer), nil)
	}

	var direct, indirect engine.Totals
	var stats engine.Stats
	if wantDirect {
		direct = engine.ComputeDirect(calc.Ownerships)
	}
	if wantIndirect {
		start := time.Now()
		indirect, stats = engine.NewPropagator(engine.WithStrategy(opts.Strategy)).
			Run(calc.Entities, calc.Objects, calc.Ownerships)
		if opts.Strict {
			indirect = engine.StrictlyIndirect(indirect, calc.Ownerships)
		}
		log.Debug("indirect computed",
			"strategy", string(stats.Strategy),
			"memoized", stats.Memoized,
			"contributions", stats.Contributions,
			"duration", time.Since(start))
	}

	switch opts.Format {
	case "json":
		out := computeOutput{}
		if wantDirect {
			out.Direct = tableFor(direct, calc, opts.Names)
		}
		if wantIndirect {
			out.Indirect = tableFor(indirect, calc, opts.Names)
			out.Stats = &stats
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "", "table":
		r, err := report.NewRenderer(opts.Locale)
		if err != nil {
			return cli.ConfigError("report locale", err)
		}
		if wantDirect {
			fmt.Fprint(w, r.Rows("Direct ownership", rowsFor(direct, calc, opts.Names)))
		}
		if wantIndirect {
			if wantDirect {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, r.Rows("Indirect ownership", rowsFor(indirect, calc, opts.Names)))
		}
		return nil
	default:
		return cli.ConfigError(fmt.Sprintf("unknown format %q (want table or json)", opts.Format), nil)
	}
}

func tableFor(totals engine.Totals, calc snapshot.Calculation, names bool) any {
	if names {
		return engine.ResolveNames(totals, calc.Entities, calc.Objects)
	}
	return totals
}

func rowsFor(totals engine.Totals, calc snapshot.Calculation, names bool) []report.Row {
	if names {
		return report.Rows(engine.ResolveNames(totals, calc.Entities, calc.Objects))
	}
	return report.TotalRows(totals, engine.NewResolver(calc.Entities, calc.Objects))
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
