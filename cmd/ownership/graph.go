package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/pkg/graphview"
	"github.com/Stoky555/ownership-graph/pkg/layers"
	"github.com/Stoky555/ownership-graph/pkg/model"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var (
	graphFormat       string
	graphHideDirect   []string
	graphHideIndirect []string
	graphStrategy     string
)

var graphCmd = &cobra.Command{
	Use:   "graph [calculation]",
	Short: "Emit the ownership graph",
	Long: `Emit the graph a renderer draws: one node per entity and object, visible
direct edges and the indirect overlay. Layout is left to the consumer.`,
	Example: `  # JSON for a web renderer
  ownership graph calc.json > graph.json

  # Graphviz
  ownership graph calc.json --format dot | dot -Tsvg > graph.svg`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := resolveStrategy(graphStrategy)
		if err != nil {
			return err
		}
		calc, err := readCalculation(cmd.Context(), cfg.ResolvedSnapshot(argAt(args, 0)))
		if err != nil {
			return err
		}
		return runGraph(cmd.Context(), cmd.OutOrStdout(), calc, graphFormat, layers.Options{
			HiddenDirect:   graphHideDirect,
			HiddenIndirect: graphHideIndirect,
			Threshold:      cfg.Compute.Threshold,
			Strategy:       strategy,
		})
	},
}

func init() {
	f := graphCmd.Flags()
	f.StringVar(&graphFormat, "format", "json", "output format: json or dot")
	f.StringSliceVar(&graphHideDirect, "hide-direct", nil, "direct edge ids to exclude")
	f.StringSliceVar(&graphHideIndirect, "hide-indirect", nil, "indirect edge ids to exclude")
	f.StringVar(&graphStrategy, "strategy", "", "propagation strategy: paths or auto")
}

func runGraph(_ context.Context, w io.Writer, calc snapshot.Calculation, format string, opts layers.Options) error {
	g := layers.Build(calc, opts).Graph(calc)
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	case "dot":
		return writeDOT(w, g)
	default:
		return cli.ConfigError(fmt.Sprintf("unknown format %q (want json or dot)", format), nil)
	}
}

// writeDOT renders g in Graphviz syntax. Direct edges are solid, indirect
// edges dashed.
func writeDOT(w io.Writer, g graphview.Graph) error {
	if _, err := fmt.Fprintln(w, "digraph ownership {\n  rankdir=LR;"); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		shape := "ellipse"
		if n.Kind == model.KindEntity {
			shape = "box"
		}
		fmt.Fprintf(w, "  %s [label=%s, shape=%s];\n", strconv.Quote(n.ID), strconv.Quote(n.Label), shape)
	}
	for _, e := range g.Edges {
		style := "solid"
		if e.Kind != graphview.EdgeDirect {
			style = "dashed"
		}
		fmt.Fprintf(w, "  %s -> %s [label=%s, style=%s];\n",
			strconv.Quote(e.Source), strconv.Quote(e.Target), strconv.Quote(e.Label), style)
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
