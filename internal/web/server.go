package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/cache"
	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/facematch"
	"github.com/kozaktomas/attendease/internal/web/handlers"
	"github.com/kozaktomas/attendease/internal/web/middleware"
)

// Stores bundles the persistence interfaces the server needs.
type Stores struct {
	Users      database.UserStore
	Embeddings database.EmbeddingStore
	Attendance database.AttendanceStore
	Leave      database.LeaveStore
	Summaries  database.SummaryStore
}

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server
func NewServer(
	cfg *config.Config,
	port int,
	host string,
	stores Stores,
	extractor handlers.FaceExtractor,
	summaryCache *cache.SummaryCache,
	index *facematch.CandidateIndex,
	db interface{ Ping(ctx context.Context) error },
) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		router: r,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	machine := attendance.NewMachine(stores.Attendance, cfg.Attendance.DayStartHour)
	backfiller := attendance.NewBackfiller(stores.Attendance, stores.Leave)
	aggregator := attendance.NewAggregator(stores.Attendance, stores.Leave, stores.Summaries)

	s.setupRoutes(stores, extractor, machine, backfiller, aggregator, summaryCache, index, db)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
