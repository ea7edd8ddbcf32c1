package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/cache"
	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/database"
)

// LeaveHandler manages leave requests.
type LeaveHandler struct {
	leave      database.LeaveStore
	users      database.UserStore
	aggregator *attendance.Aggregator
	cache      *cache.SummaryCache
	cfg        *config.Config
	now        func() time.Time
}

// NewLeaveHandler creates a leave handler.
func NewLeaveHandler(leave database.LeaveStore, users database.UserStore, aggregator *attendance.Aggregator, summaryCache *cache.SummaryCache, cfg *config.Config) *LeaveHandler {
	return &LeaveHandler{
		leave:      leave,
		users:      users,
		aggregator: aggregator,
		cache:      summaryCache,
		cfg:        cfg,
		now:        time.Now,
	}
}

// CreateLeaveRequest files a leave request for a date range.
type CreateLeaveRequest struct {
	UserID    int64  `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	LeaveType string `json:"leave_type"`
	Reason    string `json:"reason"`
}

type leaveView struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	LeaveType string `json:"leave_type"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
}

func toLeaveView(l *database.LeaveRequest) leaveView {
	return leaveView{
		ID:        l.ID,
		UserID:    l.UserID,
		StartDate: l.StartDate.Format(dateLayout),
		EndDate:   l.EndDate.Format(dateLayout),
		LeaveType: l.LeaveType,
		Reason:    l.Reason,
		Status:    l.Status,
	}
}

// Create files a new leave request. Requests start Pending and only affect
// attendance once approved.
func (h *LeaveHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start_date, want YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end_date, want YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		respondError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}
	if !h.cfg.ValidLeaveType(req.LeaveType) {
		respondError(w, http.StatusBadRequest, "unknown leave type")
		return
	}

	ctx := r.Context()
	if _, err := h.users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	leave := &database.LeaveRequest{
		UserID:    req.UserID,
		StartDate: start,
		EndDate:   end,
		LeaveType: req.LeaveType,
		Reason:    req.Reason,
		Status:    database.LeavePending,
	}
	if err := h.leave.Create(ctx, leave); err != nil {
		log.Printf("creating leave request for user %d: %v", req.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed to create leave request")
		return
	}
	respondJSON(w, http.StatusCreated, toLeaveView(leave))
}

// List returns leave requests for a user.
func (h *LeaveHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	requests, err := h.leave.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list leave requests")
		return
	}
	views := make([]leaveView, 0, len(requests))
	for i := range requests {
		views = append(views, toLeaveView(&requests[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"requests": views, "count": len(views)})
}

// Decide approves or rejects a pending leave request.
func (h *LeaveHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	ctx := r.Context()
	leave, err := h.leave.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "leave request not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load leave request")
		return
	}
	if leave.Status != database.LeavePending {
		respondError(w, http.StatusConflict, "leave request was already decided")
		return
	}

	status := database.LeaveRejected
	if req.Approve {
		status = database.LeaveApproved
	}
	if err := h.leave.SetStatus(ctx, id, status); err != nil {
		log.Printf("deciding leave request %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to update leave request")
		return
	}

	// an approval changes derived summaries for every covered month
	if status == database.LeaveApproved {
		for m := firstOfMonth(leave.StartDate); !m.After(leave.EndDate); m = m.AddDate(0, 1, 0) {
			if _, err := h.aggregator.Recompute(ctx, leave.UserID, int(m.Month()), m.Year(), h.now()); err != nil {
				log.Printf("recomputing summary for user %d: %v", leave.UserID, err)
			}
			if err := h.cache.Invalidate(ctx, leave.UserID, int(m.Month()), m.Year()); err != nil {
				log.Printf("invalidating summary cache for user %d: %v", leave.UserID, err)
			}
		}
	}

	leave.Status = status
	respondJSON(w, http.StatusOK, toLeaveView(leave))
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
