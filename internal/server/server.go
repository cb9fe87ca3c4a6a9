package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"trade-mentor/internal/auditlog"
	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/metrics"
	"trade-mentor/internal/pipeline"
)

// maxBodyBytes caps the analyze request body.
const maxBodyBytes = 4 << 20

type Params struct {
	Pipeline *pipeline.Pipeline
	Prices   interfaces.PriceSource
	Audit    *auditlog.Log // nil disables the audit trail
	Metrics  *metrics.Metrics
}

type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	prices   interfaces.PriceSource
	audit    *auditlog.Log
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func New(p Params) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		pipeline: p.Pipeline,
		prices:   p.Prices,
		audit:    p.Audit,
		metrics:  p.Metrics,
		validate: newValidator(),
	}
	s.setupMiddlewares()
	s.registerRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddlewares() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLog)
	s.router.Use(recoverJSON)
	s.router.Use(cors)
}

func (s *Server) registerRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/test-video", s.handleTestVideo)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/stock-prices", s.handleStockPrices)
		r.Get("/stock-code", s.handleStockCode)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}
