package web

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/cache"
	"github.com/kozaktomas/attendease/internal/facematch"
	"github.com/kozaktomas/attendease/internal/web/handlers"
)

func (s *Server) setupRoutes(
	stores Stores,
	extractor handlers.FaceExtractor,
	machine *attendance.Machine,
	backfiller *attendance.Backfiller,
	aggregator *attendance.Aggregator,
	summaryCache *cache.SummaryCache,
	index *facematch.CandidateIndex,
	db interface{ Ping(ctx context.Context) error },
) {
	// Create handlers
	recognizeHandler := handlers.NewRecognizeHandler(
		stores.Users, stores.Embeddings, extractor, machine, aggregator,
		summaryCache, index, s.config.Matcher.Threshold, s.config.Matcher.IndexCandidates)
	facesHandler := handlers.NewFacesHandler(stores.Users, stores.Embeddings, extractor, index)
	usersHandler := handlers.NewUsersHandler(stores.Users)
	attendanceHandler := handlers.NewAttendanceHandler(
		stores.Attendance, stores.Leave, stores.Users, backfiller, aggregator, summaryCache)
	leaveHandler := handlers.NewLeaveHandler(stores.Leave, stores.Users, aggregator, summaryCache, s.config)
	exportHandler := handlers.NewExportHandler(stores.Attendance, stores.Summaries)
	healthHandler := handlers.NewHealthHandler(db, summaryCache)

	// Health and metrics (outside the API group)
	s.router.Get("/api/v1/health", healthHandler.Check)
	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Live scanning
		r.Post("/recognize", recognizeHandler.Recognize)

		// Users
		r.Get("/users", usersHandler.List)
		r.Post("/users", usersHandler.Create)
		r.Get("/users/{id}", usersHandler.Get)
		r.Post("/users/{id}/approve", usersHandler.Approve)
		r.Post("/users/import", usersHandler.Import)

		// Face enrollment
		r.Post("/users/{id}/face", facesHandler.Enroll)
		r.Get("/users/{id}/face", facesHandler.List)
		r.Delete("/users/{id}/face", facesHandler.Reset)

		// Attendance
		r.Get("/users/{id}/attendance", attendanceHandler.ListDays)
		r.Post("/users/{id}/backfill", attendanceHandler.Backfill)
		r.Get("/users/{id}/summary", attendanceHandler.Summary)

		// Leave
		r.Post("/leave", leaveHandler.Create)
		r.Get("/leave", leaveHandler.List)
		r.Post("/leave/{id}/decide", leaveHandler.Decide)

		// CSV exports
		r.Get("/users/{id}/attendance/export", exportHandler.Attendance)
		r.Get("/users/{id}/summary/export", exportHandler.Summaries)
	})
}
