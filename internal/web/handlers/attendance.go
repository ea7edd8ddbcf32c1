package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/cache"
	"github.com/kozaktomas/attendease/internal/database"
)

const dateLayout = "2006-01-02"

// AttendanceHandler serves per-day attendance and monthly summaries.
type AttendanceHandler struct {
	attendance database.AttendanceStore
	leave      database.LeaveStore
	users      database.UserStore
	backfiller *attendance.Backfiller
	aggregator *attendance.Aggregator
	cache      *cache.SummaryCache
	now        func() time.Time
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(
	attendanceStore database.AttendanceStore,
	leave database.LeaveStore,
	users database.UserStore,
	backfiller *attendance.Backfiller,
	aggregator *attendance.Aggregator,
	summaryCache *cache.SummaryCache,
) *AttendanceHandler {
	return &AttendanceHandler{
		attendance: attendanceStore,
		leave:      leave,
		users:      users,
		backfiller: backfiller,
		aggregator: aggregator,
		cache:      summaryCache,
		now:        time.Now,
	}
}

type dayView struct {
	Date      string     `json:"date"`
	Status    string     `json:"status"`
	CheckIn   *time.Time `json:"check_in,omitempty"`
	CheckOut  *time.Time `json:"check_out,omitempty"`
	LeaveType string     `json:"leave_type,omitempty"`
}

// ListDays returns a user's attendance rows for a date range. The range
// defaults to the last 30 days.
func (h *AttendanceHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	today := h.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -30)
	to := today
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = time.Parse(dateLayout, s); err != nil {
			respondError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = time.Parse(dateLayout, s); err != nil {
			respondError(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
			return
		}
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	days, err := h.attendance.ListDays(r.Context(), userID, from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}

	views := make([]dayView, 0, len(days))
	for _, d := range days {
		views = append(views, dayView{
			Date:      d.Date.Format(dateLayout),
			Status:    string(d.Status),
			CheckIn:   d.CheckIn,
			CheckOut:  d.CheckOut,
			LeaveType: d.LeaveType,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"from":    from.Format(dateLayout),
		"to":      to.Format(dateLayout),
		"days":    views,
	})
}

// Backfill fills missing rows from the user's first activity up to today.
func (h *AttendanceHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		From string `json:"from"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	ctx := r.Context()
	from, err := h.backfillStart(r, req.From, userID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	today := h.now().UTC().Truncate(24 * time.Hour)

	created, err := h.backfiller.AutoMarkAbsent(ctx, userID, from, today)
	if err != nil {
		log.Printf("backfilling user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "backfill failed")
		return
	}

	for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(today); m = m.AddDate(0, 1, 0) {
		if _, err := h.aggregator.Recompute(ctx, userID, int(m.Month()), m.Year(), h.now()); err != nil {
			log.Printf("recomputing summary for user %d: %v", userID, err)
		}
		if err := h.cache.Invalidate(ctx, userID, int(m.Month()), m.Year()); err != nil {
			log.Printf("invalidating summary cache for user %d: %v", userID, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"from":    from.Format(dateLayout),
		"created": created,
	})
}

// backfillStart picks the backfill start date: explicit request value,
// else the user's registration date.
func (h *AttendanceHandler) backfillStart(r *http.Request, explicit string, userID int64) (time.Time, error) {
	if explicit != "" {
		return time.Parse(dateLayout, explicit)
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		return time.Time{}, err
	}
	return user.CreatedAt.UTC().Truncate(24 * time.Hour), nil
}

// Summary returns the monthly summary, recomputing on cache miss.
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	now := h.now().UTC()
	month := int(now.Month())
	year := now.Year()
	if s := r.URL.Query().Get("month"); s != "" {
		if month, err = parseIntInRange(s, 1, 12); err != nil {
			respondError(w, http.StatusBadRequest, "month must be 1-12")
			return
		}
	}
	if s := r.URL.Query().Get("year"); s != "" {
		if year, err = parseIntInRange(s, 2000, 2200); err != nil {
			respondError(w, http.StatusBadRequest, "invalid year")
			return
		}
	}

	ctx := r.Context()
	if cached := h.cache.Get(ctx, userID, month, year); cached != nil {
		respondJSON(w, http.StatusOK, summaryView(cached, true))
		return
	}

	summary, err := h.aggregator.Recompute(ctx, userID, month, year, now)
	if err != nil {
		log.Printf("recomputing summary for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}
	if err := h.cache.Set(ctx, summary); err != nil {
		log.Printf("caching summary for user %d: %v", userID, err)
	}

	respondJSON(w, http.StatusOK, summaryView(summary, false))
}

func summaryView(s *database.MonthlySummary, cached bool) map[string]any {
	return map[string]any{
		"user_id":      s.UserID,
		"month":        s.Month,
		"year":         s.Year,
		"total_days":   s.TotalDays,
		"present_days": s.PresentDays,
		"absent_days":  s.AbsentDays,
		"leave_days":   s.LeaveDays,
		"holiday_days": s.HolidayDays,
		"percentage":   s.Percentage,
		"cached":       cached,
	}
}
