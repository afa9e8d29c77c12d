package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/pkg/layers"
	"github.com/Stoky555/ownership-graph/pkg/report"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var (
	reportHideDirect   []string
	reportHideIndirect []string
	reportThreshold    float64
	reportStrategy     string
	reportLocale       string
	reportFormat       string
)

var reportCmd = &cobra.Command{
	Use:   "report [calculation]",
	Short: "Report per-object sums and indirect relationships",
	Long: `Report, for every object, its direct owners and their total, followed by
the strictly indirect relationships above the materiality threshold.

Hidden direct edges are left out of the propagation; hidden indirect rows are
left out of the listing.`,
	Example: `  # Full report
  ownership report calc.json

  # Exclude one direct edge from the indirect computation
  ownership report calc.json --hide-direct "entity:a->object:1"

  # German number formatting
  ownership report calc.json --locale de`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := resolveStrategy(reportStrategy)
		if err != nil {
			return err
		}
		calc, err := readCalculation(cmd.Context(), cfg.ResolvedSnapshot(argAt(args, 0)))
		if err != nil {
			return err
		}
		return runReport(cmd.Context(), cmd.OutOrStdout(), calc, reportOptions{
			Layers: layers.Options{
				HiddenDirect:   reportHideDirect,
				HiddenIndirect: reportHideIndirect,
				Threshold:      resolveFloat(reportThreshold, cfg.Compute.Threshold),
				Strategy:       strategy,
			},
			Locale: resolveString(reportLocale, cfg.Report.Locale),
			Format: reportFormat,
		})
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringSliceVar(&reportHideDirect, "hide-direct", nil, "direct edge ids to exclude from propagation")
	f.StringSliceVar(&reportHideIndirect, "hide-indirect", nil, "indirect ids to leave out of the listing")
	f.Float64Var(&reportThreshold, "threshold", 0, "materiality threshold in percent (default from config, 0.01)")
	f.StringVar(&reportStrategy, "strategy", "", "propagation strategy: paths or auto")
	f.StringVar(&reportLocale, "locale", "", "number formatting locale (e.g. en, de)")
	f.StringVar(&reportFormat, "format", "table", "output format: table or json")
}

type reportOptions struct {
	Layers layers.Options
	Locale string
	Format string
}

type reportOutput struct {
	Objects  []report.ObjectSummary `json:"objects"`
	Indirect []layers.IndirectRow   `json:"indirect"`
}

func runReport(_ context.Context, w io.Writer, calc snapshot.Calculation, opts reportOptions) error {
	summaries := report.Summarize(calc)
	visible := layers.Build(calc, opts.Layers).VisibleIndirect()

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reportOutput{Objects: summaries, Indirect: visible})
	case "", "table":
		r, err := report.NewRenderer(opts.Locale)
		if err != nil {
			return cli.ConfigError("report locale", err)
		}
		if name := calc.Name(); name != "" {
			fmt.Fprintf(w, "%s\n\n", name)
		}
		fmt.Fprint(w, r.Summary(summaries))
		fmt.Fprintln(w)
		fmt.Fprint(w, r.Indirect("Indirect ownership", visible))
		return nil
	default:
		return cli.ConfigError(fmt.Sprintf("unknown format %q (want table or json)", opts.Format), nil)
	}
}
