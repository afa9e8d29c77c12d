package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/graphsync"
	"github.com/Stoky555/ownership-graph/pkg/graphview"
	"github.com/Stoky555/ownership-graph/pkg/layers"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var (
	syncID       string
	syncURI      string
	syncRemove   bool
	syncStrategy string
)

var syncCmd = &cobra.Command{
	Use:   "sync [calculation]",
	Short: "Mirror a calculation graph into Neo4j",
	Long: `Write the calculation's graph view (nodes, direct and indirect edges) into
Neo4j under the given id, replacing what an earlier sync wrote.`,
	Example: `  # Sync a file
  ownership sync calc.json --id group-2025 --neo4j bolt://localhost:7687

  # Remove a synced subgraph
  ownership sync --id group-2025 --remove`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if syncID == "" {
			return cli.ConfigError("--id is required", nil)
		}
		strategy, err := resolveStrategy(syncStrategy)
		if err != nil {
			return err
		}

		var calc snapshot.Calculation
		if !syncRemove {
			if calc, err = readCalculation(ctx, cfg.ResolvedSnapshot(argAt(args, 0))); err != nil {
				return err
			}
		}

		client, err := graphsync.New(ctx, graphsync.Config{
			URI:      resolveString(syncURI, cfg.Neo4j.URI),
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, log)
		if err != nil {
			if errors.Is(err, graphsync.ErrNotConfigured) {
				return cli.ConfigError("neo4j URI is required (use --neo4j or set neo4j.uri)", err)
			}
			return cli.StoreConnectError("connecting to neo4j", err)
		}
		defer func() { _ = client.Close(ctx) }()

		if syncRemove {
			if err := client.Remove(ctx, syncID); err != nil {
				return cli.GeneralError("removing graph", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Graph %s removed.\n", syncID)
			}
			return nil
		}
		return runSync(ctx, cmd.OutOrStdout(), client, syncID, calc, layers.Options{
			Threshold: cfg.Compute.Threshold,
			Strategy:  strategy,
		})
	},
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncID, "id", "", "calculation id the subgraph is stored under")
	f.StringVar(&syncURI, "neo4j", "", "neo4j URI (default from config)")
	f.BoolVar(&syncRemove, "remove", false, "remove the subgraph instead of syncing")
	f.StringVar(&syncStrategy, "strategy", "", "propagation strategy: paths or auto")
}

// graphSyncer is the part of graphsync.Client runSync needs.
type graphSyncer interface {
	Sync(ctx context.Context, calculationID string, g graphview.Graph) (graphsync.Result, error)
}

func runSync(ctx context.Context, w io.Writer, client graphSyncer, id string, calc snapshot.Calculation, opts layers.Options) error {
	g := layers.Build(calc, opts).Graph(calc)
	res, err := client.Sync(ctx, id, g)
	if err != nil {
		return cli.GeneralError("syncing graph", err)
	}
	if !quiet {
		fmt.Fprintf(w, "Graph %s synced: %d nodes, %d edges.\n", id, res.Nodes, res.Edges)
	}
	return nil
}
