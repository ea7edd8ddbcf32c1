package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/cache"
	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/embedding"
	"github.com/kozaktomas/attendease/internal/facematch"
)

// RecognizeRequest is a live scan: one camera frame plus the intended action.
type RecognizeRequest struct {
	Image  string `json:"image"`
	Action string `json:"action"`
}

// RecognizeResponse reports the match and the recorded scan.
type RecognizeResponse struct {
	Matched    bool                   `json:"matched"`
	UserID     int64                  `json:"user_id,omitempty"`
	Username   string                 `json:"username,omitempty"`
	Distance   float64                `json:"distance,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
	Scan       *attendance.ScanResult `json:"scan,omitempty"`
}

// RecognizeHandler handles live camera scans.
type RecognizeHandler struct {
	users      database.UserStore
	embeddings database.EmbeddingStore
	extractor  FaceExtractor
	machine    *attendance.Machine
	aggregator *attendance.Aggregator
	cache      *cache.SummaryCache
	index      *facematch.CandidateIndex
	threshold  float64
	candidates int
	now        func() time.Time
}

// NewRecognizeHandler creates a recognize handler. index may be nil, which
// keeps matching on the exact brute-force path.
func NewRecognizeHandler(
	users database.UserStore,
	embeddings database.EmbeddingStore,
	extractor FaceExtractor,
	machine *attendance.Machine,
	aggregator *attendance.Aggregator,
	summaryCache *cache.SummaryCache,
	index *facematch.CandidateIndex,
	threshold float64,
	indexCandidates int,
) *RecognizeHandler {
	return &RecognizeHandler{
		users:      users,
		embeddings: embeddings,
		extractor:  extractor,
		machine:    machine,
		aggregator: aggregator,
		cache:      summaryCache,
		index:      index,
		threshold:  threshold,
		candidates: indexCandidates,
		now:        time.Now,
	}
}

// Recognize matches a camera frame against enrolled faces and records the
// requested scan for the matched user.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	action := attendance.ScanAction(req.Action)
	if action != attendance.ActionCheckIn && action != attendance.ActionCheckOut {
		respondError(w, http.StatusBadRequest, "action must be check_in or check_out")
		return
	}

	ctx := r.Context()
	match, err := h.matchFrame(ctx, req.Image, w)
	if err != nil || match == nil {
		return // response already written
	}

	user, err := h.users.GetByID(ctx, match.UserID)
	if err != nil {
		recognitionsTotal.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, "failed to load matched user")
		return
	}
	if !user.Approved {
		recognitionsTotal.WithLabelValues("unapproved").Inc()
		respondError(w, http.StatusForbidden, "user is not approved for attendance")
		return
	}

	scan, err := h.machine.RecordScan(ctx, user.ID, h.now(), action)
	switch {
	case errors.Is(err, attendance.ErrSequence):
		respondError(w, http.StatusConflict, "must check in before checking out")
		return
	case errors.Is(err, database.ErrConflict):
		respondError(w, http.StatusConflict, "concurrent scan, please retry")
		return
	case err != nil:
		log.Printf("recording scan for user %d: %v", user.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to record scan")
		return
	}

	recognitionsTotal.WithLabelValues("matched").Inc()
	recognitionDistance.Observe(match.Distance)
	scansTotal.WithLabelValues(string(scan.Action), boolLabel(scan.AlreadyDone)).Inc()

	// keep the stored summary in step with the new scan
	if _, err := h.aggregator.Recompute(ctx, user.ID, int(scan.Date.Month()), scan.Date.Year(), h.now()); err != nil {
		log.Printf("recomputing summary for user %d: %v", user.ID, err)
	}
	if err := h.cache.Invalidate(ctx, user.ID, int(scan.Date.Month()), scan.Date.Year()); err != nil {
		log.Printf("invalidating summary cache for user %d: %v", user.ID, err)
	}

	respondJSON(w, http.StatusOK, RecognizeResponse{
		Matched:    true,
		UserID:     user.ID,
		Username:   user.Username,
		Distance:   match.Distance,
		Confidence: match.Confidence,
		Scan:       scan,
	})
}

// matchFrame decodes the frame, extracts a face and finds the best match.
// Writes the response itself on every non-match outcome and returns nil.
func (h *RecognizeHandler) matchFrame(ctx context.Context, image string, w http.ResponseWriter) (*facematch.Match, error) {
	imageData, err := embedding.DecodeDataURL(image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not decode image")
		return nil, err
	}

	result, err := h.extractor.ExtractFace(ctx, imageData)
	switch {
	case errors.Is(err, embedding.ErrNoFaceDetected):
		recognitionsTotal.WithLabelValues("no_face").Inc()
		respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
		return nil, err
	case errors.Is(err, embedding.ErrTimeout):
		recognitionsTotal.WithLabelValues("error").Inc()
		respondError(w, http.StatusGatewayTimeout, "embedding service timed out")
		return nil, err
	case err != nil:
		recognitionsTotal.WithLabelValues("error").Inc()
		respondError(w, http.StatusBadGateway, "embedding service failed")
		return nil, err
	}

	var match *facematch.Match
	if h.index != nil && h.index.Len() > 0 {
		match = h.index.BestMatch(result.Embedding, h.candidates, h.threshold)
	} else {
		candidates, err := h.embeddings.AllByUser(ctx)
		if err != nil {
			recognitionsTotal.WithLabelValues("error").Inc()
			respondError(w, http.StatusInternalServerError, "failed to load enrolled faces")
			return nil, err
		}
		match = facematch.BestMatch(result.Embedding, candidates, h.threshold)
	}

	if match == nil {
		recognitionsTotal.WithLabelValues("no_match").Inc()
		respondJSON(w, http.StatusOK, RecognizeResponse{Matched: false})
		return nil, nil
	}
	return match, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
