package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/database/mock"
)

func attendanceSetup(t *testing.T) (*AttendanceHandler, *mock.MockAttendanceStore, *mock.MockUserStore) {
	t.Helper()
	store := mock.NewMockAttendanceStore()
	leaves := mock.NewMockLeaveStore()
	users := mock.NewMockUserStore()
	summaries := mock.NewMockSummaryStore()

	h := NewAttendanceHandler(
		store, leaves, users,
		attendance.NewBackfiller(store, leaves),
		attendance.NewAggregator(store, leaves, summaries),
		nil)
	h.now = func() time.Time {
		return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	return h, store, users
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func TestListDays(t *testing.T) {
	h, store, _ := attendanceSetup(t)
	in := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	store.SetDay(database.AttendanceDay{
		UserID:  1,
		Date:    mustDate(t, "2026-03-02"),
		Status:  database.StatusCheckedIn,
		CheckIn: &in,
	})

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/users/1/attendance?from=2026-03-01&to=2026-03-09", nil),
		map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.ListDays(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		Days []dayView `json:"days"`
	}
	parseJSONResponse(t, rec, &resp)
	if len(resp.Days) != 1 {
		t.Fatalf("got %d days, want 1", len(resp.Days))
	}
	if resp.Days[0].Date != "2026-03-02" || resp.Days[0].Status != "Checked In" {
		t.Errorf("day = %+v", resp.Days[0])
	}
}

func TestListDays_InvalidRange(t *testing.T) {
	h, _, _ := attendanceSetup(t)

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/users/1/attendance?from=2026-03-09&to=2026-03-01", nil),
		map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.ListDays(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestBackfill_FromRegistrationDate(t *testing.T) {
	h, store, users := attendanceSetup(t)
	users.AddUser(database.User{
		ID:        1,
		Username:  "jana.novakova",
		CreatedAt: time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC),
	})

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/users/1/backfill", strings.NewReader(`{}`)),
		map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.Backfill(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		Created int `json:"created"`
	}
	parseJSONResponse(t, rec, &resp)
	// Mar 2 .. Mar 9 inclusive
	if resp.Created != 8 {
		t.Errorf("created = %d, want 8", resp.Created)
	}

	sat, _ := store.GetDay(t.Context(), 1, mustDate(t, "2026-03-07"))
	if sat == nil || sat.Status != database.StatusHoliday {
		t.Errorf("saturday = %+v, want Holiday", sat)
	}
}

func TestSummary_RecomputesAndReports(t *testing.T) {
	h, store, _ := attendanceSetup(t)
	in := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	out := in.Add(8 * time.Hour)
	store.SetDay(database.AttendanceDay{
		UserID:   1,
		Date:     mustDate(t, "2026-03-02"),
		Status:   database.StatusPresent,
		CheckIn:  &in,
		CheckOut: &out,
	})

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/users/1/summary?month=3&year=2026", nil),
		map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		TotalDays   int     `json:"total_days"`
		PresentDays int     `json:"present_days"`
		AbsentDays  int     `json:"absent_days"`
		LeaveDays   int     `json:"leave_days"`
		HolidayDays int     `json:"holiday_days"`
		Percentage  float64 `json:"percentage"`
		Cached      bool    `json:"cached"`
	}
	parseJSONResponse(t, rec, &resp)
	// now is Mar 10, so 10 elapsed days with 3 weekend days
	if resp.TotalDays != 10 {
		t.Errorf("total = %d, want 10", resp.TotalDays)
	}
	if resp.PresentDays != 1 {
		t.Errorf("present = %d, want 1", resp.PresentDays)
	}
	if sum := resp.PresentDays + resp.AbsentDays + resp.LeaveDays + resp.HolidayDays; sum != resp.TotalDays {
		t.Errorf("buckets sum to %d, want %d", sum, resp.TotalDays)
	}
	if resp.Cached {
		t.Error("first read must be a cache miss")
	}
}

func TestSummary_InvalidMonth(t *testing.T) {
	h, _, _ := attendanceSetup(t)

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/users/1/summary?month=13", nil),
		map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}
