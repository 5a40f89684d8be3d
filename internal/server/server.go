// Package server exposes the backtest engine and result stores over a
// JSON HTTP API. Every /api/v1 route requires a bearer token; the
// token subject partitions persisted results per caller.
package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"strategy-lab/internal/auth"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/storage"
)

// Server wires handlers to their collaborators.
type Server struct {
	engine  *backtest.Engine
	bars    storage.BarStore
	results storage.BacktestResultStore
	logger  *log.Logger
	metrics *observability.Metrics
}

// Options contains configuration for creating a Server.
// Metrics may be nil; requests are then not instrumented.
type Options struct {
	Engine  *backtest.Engine
	Bars    storage.BarStore
	Results storage.BacktestResultStore
	Logger  *log.Logger
	Metrics *observability.Metrics
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		engine:  opts.Engine,
		bars:    opts.Bars,
		results: opts.Results,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(verifier *auth.Verifier) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), Recovery(), Instrument(s.metrics))

	router.GET("/healthz", s.healthz)

	api := router.Group("/api/v1")
	api.Use(Auth(verifier))
	{
		api.POST("/backtest", s.runBacktest)
		api.GET("/results", s.listResults)
		api.GET("/results/statistics", s.resultStatistics)
		api.GET("/ohlcv/:symbol/:interval", s.getOHLCV)
	}

	return router
}

// Handler wraps the router with CORS for browser clients. An empty
// origin list allows no cross-origin requests.
func (s *Server) Handler(verifier *auth.Verifier, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(s.Router(verifier))
}
