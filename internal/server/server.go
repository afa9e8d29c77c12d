// Package server exposes the ownership engine over HTTP.
//
// Every compute route accepts a calculation document (JSON or YAML, the same
// format the CLI reads) in the request body, optionally extended with
// presentation options, and answers with JSON:
//
//	POST /v1/direct      aggregated direct totals
//	POST /v1/indirect    indirect totals and run stats
//	POST /v1/names       name-keyed totals and rows
//	POST /v1/layers      direct and indirect layers
//	POST /v1/graph       renderer graph (nodes and edges)
//	POST /v1/summary     per-object direct sums
//	POST /v1/doctor      health report
//
// When a store is configured, saved calculations can be read back:
//
//	GET /v1/calculations
//	GET /v1/calculations/:id/indirect
//
// GET /healthz and GET /metrics are always mounted.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Stoky555/ownership-graph/internal/logger"
	"github.com/Stoky555/ownership-graph/internal/metrics"
	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/layers"
)

// DefaultShutdownTimeout bounds how long Run waits for in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// Server serves the HTTP API.
type Server struct {
	router   *gin.Engine
	log      *logger.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	store    *store.Store

	strategy        engine.Strategy
	threshold       float64
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and lifecycle logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records engine runs and requests on m and serves g at /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithStore mounts the calculation routes backed by st.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithDefaults sets the strategy and threshold used when a request omits them.
func WithDefaults(strategy engine.Strategy, threshold float64) Option {
	return func(s *Server) {
		s.strategy = strategy
		s.threshold = threshold
	}
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// New builds a server with all routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		log:             logger.Nop(),
		gatherer:        prometheus.DefaultGatherer,
		strategy:        engine.StrategyPaths,
		threshold:       layers.DefaultThreshold,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestID(), s.accessLog())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth())
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/v1")
	{
		v1.POST("/direct", s.handleDirect())
		v1.POST("/indirect", s.handleIndirect())
		v1.POST("/names", s.handleNames())
		v1.POST("/layers", s.handleLayers())
		v1.POST("/graph", s.handleGraph())
		v1.POST("/summary", s.handleSummary())
		v1.POST("/doctor", s.handleDoctor())

		if s.store != nil {
			v1.GET("/calculations", s.handleListCalculations())
			v1.GET("/calculations/:id/indirect", s.handleStoredIndirect())
		}
	}
}

// Handler returns the router for use with httptest or a custom http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
