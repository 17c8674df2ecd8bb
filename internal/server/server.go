// Package server exposes market data, portfolio analytics and advice over a
// JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"WealthPulse/internal/advisor"
	"WealthPulse/internal/cache"
	"WealthPulse/internal/collector"
	"WealthPulse/internal/model"
	"WealthPulse/internal/notifier"
	"WealthPulse/internal/recorder"
	"WealthPulse/internal/strategy"
)

// QuoteCache serves quote sets, possibly stale.
type QuoteCache interface {
	Get(ctx context.Context, key cache.Key) (cache.Result, error)
}

// Prober reports provider connectivity.
type Prober interface {
	Probe(ctx context.Context, fundCode string) []collector.ProbeResult
}

// Advisor answers free-form questions about a portfolio.
type Advisor interface {
	Ask(ctx context.Context, message string, invs []model.Investment) (*advisor.Response, error)
}

// Config holds server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	Log         zerolog.Logger
	Quotes      QuoteCache
	Prober      Prober
	Advisor     Advisor
	Recorder    recorder.Recorder
	Engine      *strategy.Engine
	Notifier    notifier.Notifier
	FundCodes   []string
}

// Server represents the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
	now    func() time.Time
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	if cfg.Engine == nil {
		cfg.Engine = strategy.NewEngine()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = recorder.NewNoopRecorder()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notifier.Noop{}
	}
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		now:    time.Now,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
		// Market loads may take several provider timeouts end to end.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/system/status", s.handleSystemStatus)
		r.Route("/market", func(r chi.Router) {
			r.Get("/providers", s.handleProviders)
			r.Get("/{dataset}", s.handleMarket)
			r.Get("/{dataset}/{symbol}/history", s.handleQuoteHistory)
		})
		r.Route("/portfolio", func(r chi.Router) {
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/performance", s.handleUpdatePerformance)
			r.Get("/performance/{id}", s.handlePerformanceHistory)
		})
		r.Post("/advice", s.handleAdvice)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
