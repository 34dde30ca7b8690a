// Package http serves the dashboard JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ledgerdash/internal/log"
	"ledgerdash/internal/middleware/ratelimit"
	"ledgerdash/internal/middleware/security"
	"ledgerdash/internal/middleware/trace"
	"ledgerdash/internal/services"
)

// Options configures a Server.
type Options struct {
	Addr string
	// DefaultIncludeConfidential applies when neither the query parameter
	// nor the cookie says otherwise.
	DefaultIncludeConfidential bool
	RateLimit                  ratelimit.Config
	// Ready is probed by /readyz; nil means always ready.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	dash     *services.DashboardService
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	ready    func(ctx context.Context) error
	now      func() time.Time

	defaultConfidential bool
	logger              *log.Logger
	shutdownOnce        sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, ledgerSvc *services.LedgerService, dash *services.DashboardService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	detector := security.NewDetector(logger)
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:              ledgerSvc,
		dash:                dash,
		limiter:             ratelimit.NewLimiter(opts.RateLimit),
		detector:            detector,
		tracer:              trace.NewMiddleware(detector.ExtractClientIP, logger),
		ready:               opts.Ready,
		now:                 opts.Now,
		defaultConfidential: opts.DefaultIncludeConfidential,
		logger:              logger.WithComponent(log.ComponentHTTP),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, true, s.onRateLimited))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/workspaces/{workspaceID}", func(r chi.Router) {
		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Get("/balance", s.handleBalance)
		r.Get("/categories", s.handleCategories)
		r.Get("/wallets", s.handleWallets)

		r.Route("/charts", func(r chi.Router) {
			r.Get("/buckets", s.handleBuckets)
			r.Get("/balance", s.handleBalanceTrend)
			r.Get("/shares", s.handleShares)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "HTTP server shutting down", log.FieldOperation, log.OpShutdown)
		err = s.Server.Shutdown(ctx)
	})
	return err
}
