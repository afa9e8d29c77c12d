package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"sigs.k8s.io/yaml"

	"github.com/Stoky555/ownership-graph/internal/doctor"
	"github.com/Stoky555/ownership-graph/internal/metrics"
	"github.com/Stoky555/ownership-graph/internal/store"
	"github.com/Stoky555/ownership-graph/internal/version"
	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/layers"
	"github.com/Stoky555/ownership-graph/pkg/report"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// Error codes.
const (
	CodeBadRequest   = "bad_request"
	CodeInvalidInput = "invalid_calculation"
	CodeNotFound     = "not_found"
	CodeNotMigrated  = "store_not_migrated"
	CodeInternal     = "internal"
)

// RequestOptions are the optional presentation fields allowed next to the
// calculation document in a request body.
type RequestOptions struct {
	// HiddenDirect lists direct edge ids left out of every computation.
	HiddenDirect []string `json:"hiddenDirect,omitempty"`
	// HiddenIndirect lists indirect edge ids. /v1/layers and /v1/graph flag
	// them; the other routes omit them from indirect results.
	HiddenIndirect []string `json:"hiddenIndirect,omitempty"`
	Threshold      float64  `json:"threshold,omitempty"`
	Strategy       string   `json:"strategy,omitempty"`

	// Strict drops indirect entries whose id equals a direct edge id.
	Strict bool `json:"strict,omitempty"`

	// Layer selects the table /v1/names resolves: "direct" or "indirect" (default).
	Layer string `json:"layer,omitempty"`
}

// DirectResponse is returned by /v1/direct.
type DirectResponse struct {
	Totals engine.Totals `json:"totals"`
}

// IndirectResponse is returned by /v1/indirect and the stored indirect route.
type IndirectResponse struct {
	Totals  engine.Totals  `json:"totals"`
	Entries []engine.Entry `json:"entries"`
	Stats   *engine.Stats  `json:"stats,omitempty"`
}

// NamesResponse is returned by /v1/names.
type NamesResponse struct {
	Layer string             `json:"layer"`
	Names engine.NamedTotals `json:"names"`
	Rows  []report.Row       `json:"rows"`
}

// SummaryResponse is returned by /v1/summary.
type SummaryResponse struct {
	Objects []report.ObjectSummary `json:"objects"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status  string          `json:"status"`
	Version version.Details `json:"version"`
	Store   bool            `json:"store"`
}

// CalculationsResponse is returned by GET /v1/calculations.
type CalculationsResponse struct {
	Calculations []store.CalculationInfo `json:"calculations"`
}

// StoredIndirectResponse is returned by GET /v1/calculations/:id/indirect.
// Cached reports whether the totals came from saved results.
type StoredIndirectResponse struct {
	ID string `json:"id"`
	IndirectResponse
	Cached bool `json:"cached"`
}

type request struct {
	calc     snapshot.Calculation
	opts     RequestOptions
	strategy engine.Strategy
}

// bind reads the body as a calculation document plus RequestOptions. It writes
// the error response itself and returns false when the request is unusable.
func (s *Server) bind(c *gin.Context) (request, bool) {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("reading body: %w", err))
		return request{}, false
	}
	calc, err := snapshot.Parse(body)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, CodeInvalidInput, err)
		return request{}, false
	}

	var opts RequestOptions
	if err := yaml.Unmarshal(body, &opts); err != nil {
		s.fail(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("decoding options: %w", err))
		return request{}, false
	}
	strategy := s.strategy
	if opts.Strategy != "" {
		if strategy, err = engine.ParseStrategy(opts.Strategy); err != nil {
			s.fail(c, http.StatusBadRequest, CodeBadRequest, err)
			return request{}, false
		}
	}
	if opts.Threshold < 0 {
		s.fail(c, http.StatusBadRequest, CodeBadRequest, errors.New("threshold must not be negative"))
		return request{}, false
	}
	if opts.Threshold == 0 {
		opts.Threshold = s.threshold
	}
	return request{calc: calc, opts: opts, strategy: strategy}, true
}

func (r request) visibility() layers.Visibility {
	return layers.NewVisibility(r.opts.HiddenDirect, r.opts.HiddenIndirect)
}

func (r request) layerOptions() layers.Options {
	return layers.Options{
		HiddenDirect:   r.opts.HiddenDirect,
		HiddenIndirect: r.opts.HiddenIndirect,
		Threshold:      r.opts.Threshold,
		Strategy:       r.strategy,
	}
}

func (s *Server) fail(c *gin.Context, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "request_id", RequestID(c), "route", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code, RequestID: RequestID(c)})
}

func (s *Server) storeFail(c *gin.Context, err error) {
	switch {
	case store.IsNotFoundErr(err):
		s.fail(c, http.StatusNotFound, CodeNotFound, err)
	case store.IsNotMigratedErr(err):
		s.fail(c, http.StatusServiceUnavailable, CodeNotMigrated, err)
	default:
		s.fail(c, http.StatusInternalServerError, CodeInternal, err)
	}
}

func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.Get(), Store: s.store != nil})
	}
}

func (s *Server) handleDirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := s.bind(c)
		if !ok {
			return
		}
		start := time.Now()
		totals := engine.ComputeDirect(req.visibility().VisibleOwnerships(req.calc.Ownerships))
		s.metrics.ObserveRun(metrics.OpDirect, start)
		c.JSON(http.StatusOK, DirectResponse{Totals: totals})
	}
}

// runIndirect propagates over the visible ownerships. Strict mode still
// dedups against every direct edge, hidden ones included.
func (s *Server) runIndirect(req request) (engine.Totals, engine.Stats) {
	vis := req.visibility()
	start := time.Now()
	totals, stats := engine.NewPropagator(engine.WithStrategy(req.strategy)).
		Run(req.calc.Entities, req.calc.Objects, vis.VisibleOwnerships(req.calc.Ownerships))
	s.metrics.ObserveRun(metrics.OpIndirect, start)
	s.metrics.ObserveStats(stats)
	if req.opts.Strict {
		totals = engine.StrictlyIndirect(totals, req.calc.Ownerships)
	}
	return vis.WithoutHiddenIndirect(totals), stats
}

func (s *Server) handleIndirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := s.bind(c)
		if !ok {
			return
		}
		totals, stats := s.runIndirect(req)
		c.JSON(http.StatusOK, IndirectResponse{Totals: totals, Entries: totals.Entries(), Stats: &stats})
	}
}

func (s *Server) handleNames() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := s.bind(c)
		if !ok {
			return
		}
		var totals engine.Totals
		switch req.opts.Layer {
		case "", string(store.LayerIndirect):
			req.opts.Layer = string(store.LayerIndirect)
			totals, _ = s.runIndirect(req)
		case string(store.LayerDirect):
			totals = engine.ComputeDirect(req.visibility().VisibleOwnerships(req.calc.Ownerships))
		default:
			s.fail(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("unknown layer %q", req.opts.Layer))
			return
		}

		start := time.Now()
		named := engine.ResolveNames(totals, req.calc.Entities, req.calc.Objects)
		s.metrics.ObserveRun(metrics.OpNames, start)
		c.JSON(http.StatusOK, NamesResponse{Layer: req.opts.Layer, Names: named, Rows: report.Rows(named)})
	}
}

func (s *Server) handleLayers() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := s.bind(c)
		if !ok {
			return
		}
		start := time.Now()
		l := layers.Build(req.calc, req.layerOptions())
		s.metrics.ObserveRun(metrics.OpLayers, start)
		s.metrics.ObserveStats(l.Stats)
		c.JSON(http.StatusOK, l)
	}
}

func (s *Server) handleGraph() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := s.bind(c)
		if !ok {
			return
		}
		start := time.Now()
		g := layers.Build(req.calc, req.layerOptions()).Graph(req.calc)
		s.metrics.ObserveRun(metrics.OpGraph, start)
		c.JSON(http.StatusOK, g)
	}
}

func (s *Server) handleSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := s.bind(c)
		if !ok {
			return
		}
		calc := req.calc
		calc.Ownerships = req.visibility().VisibleOwnerships(calc.Ownerships)
		c.JSON(http.StatusOK, SummaryResponse{Objects: report.Summarize(calc)})
	}
}

// handleDoctor parses the body itself: structurally invalid documents still get a
// report as long as they decode.
func (s *Server) handleDoctor() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			s.fail(c, http.StatusBadRequest, CodeBadRequest, err)
			return
		}
		var calc snapshot.Calculation
		if err := yaml.Unmarshal(body, &calc); err != nil {
			s.fail(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("%w: %v", snapshot.ErrMalformed, err))
			return
		}
		var opts []doctor.Option
		if s.store != nil {
			opts = append(opts, doctor.WithStore(s.store))
		}
		r, err := doctor.New(calc, opts...).Run(c.Request.Context())
		if err != nil {
			s.fail(c, http.StatusInternalServerError, CodeInternal, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func (s *Server) handleListCalculations() gin.HandlerFunc {
	return func(c *gin.Context) {
		infos, err := s.store.ListCalculations(c.Request.Context())
		if err != nil {
			s.storeFail(c, err)
			return
		}
		if infos == nil {
			infos = []store.CalculationInfo{}
		}
		c.JSON(http.StatusOK, CalculationsResponse{Calculations: infos})
	}
}

// handleStoredIndirect answers from saved indirect results when present and
// otherwise computes them from the saved network.
func (s *Server) handleStoredIndirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		calc, err := s.store.LoadCalculation(ctx, id)
		if err != nil {
			s.storeFail(c, err)
			return
		}
		totals, err := s.store.LoadResults(ctx, id, store.LayerIndirect)
		if err != nil {
			s.storeFail(c, err)
			return
		}
		resp := StoredIndirectResponse{ID: id, Cached: totals.Len() > 0}
		if resp.Cached {
			resp.Totals = totals
		} else {
			computed, stats := s.runIndirect(request{calc: calc, strategy: s.strategy})
			resp.Totals = computed
			resp.Stats = &stats
		}
		resp.Entries = resp.Totals.Entries()
		c.JSON(http.StatusOK, resp)
	}
}
