package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/attendease/internal/embedding"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// FaceExtractor turns an image into a face embedding. Implemented by
// embedding.Client; tests substitute a fake.
type FaceExtractor interface {
	ExtractFace(ctx context.Context, imageData []byte) (*embedding.Result, error)
	Model() string
}

// CachePinger reports whether the summary cache is reachable.
type CachePinger interface {
	Healthy(ctx context.Context) bool
}

// parseIntInRange parses s as an integer and checks the inclusive bounds.
func parseIntInRange(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthHandler reports readiness of the storage backends.
type HealthHandler struct {
	db    interface{ Ping(ctx context.Context) error }
	cache CachePinger
}

// NewHealthHandler creates a health handler. Either dependency may be nil.
func NewHealthHandler(db interface{ Ping(ctx context.Context) error }, cache CachePinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Check handles the health check endpoint.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	if h.cache != nil && !h.cache.Healthy(r.Context()) {
		status["cache"] = "unreachable"
	}

	respondJSON(w, code, status)
}
