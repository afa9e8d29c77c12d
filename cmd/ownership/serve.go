package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/metrics"
	"github.com/Stoky555/ownership-graph/internal/server"
	"github.com/Stoky555/ownership-graph/internal/store"
)

var (
	serveAddr      string
	serveDB        string
	serveWithStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. Compute routes take a calculation document in the
request body. With --with-store, saved calculations are served as well.
Prometheus metrics are exposed at /metrics.`,
	Example: `  # Serve on the configured address (default :8080)
  ownership serve

  # Serve saved calculations too
  ownership serve --addr :9000 --with-store`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		strategy, err := resolveStrategy("")
		if err != nil {
			return err
		}

		var st *store.Store
		if serveWithStore || serveDB != "" {
			if st, err = openStore(ctx, serveDB); err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
		}

		if verbose == 0 {
			gin.SetMode(gin.ReleaseMode)
		}
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		opts := []server.Option{
			server.WithLogger(log),
			server.WithMetrics(metrics.New(reg), reg),
			server.WithDefaults(strategy, cfg.Compute.Threshold),
		}
		if st != nil {
			opts = append(opts, server.WithStore(st))
		}
		return runServe(ctx, server.New(opts...), resolveString(serveAddr, cfg.Serve.Addr))
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	f.StringVar(&serveDB, "db", "", "database URL (implies --with-store)")
	f.BoolVar(&serveWithStore, "with-store", false, "serve saved calculations from the configured store")
}

func runServe(ctx context.Context, srv *server.Server, addr string) error {
	if err := srv.Run(ctx, addr); err != nil {
		return cli.GeneralError("http server", err)
	}
	return nil
}
