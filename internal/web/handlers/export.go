package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kozaktomas/attendease/internal/database"
)

// ExportHandler streams attendance data as CSV downloads.
type ExportHandler struct {
	attendance database.AttendanceStore
	summaries  database.SummaryStore
}

// NewExportHandler creates an export handler.
func NewExportHandler(attendance database.AttendanceStore, summaries database.SummaryStore) *ExportHandler {
	return &ExportHandler{attendance: attendance, summaries: summaries}
}

const timeLayout = "15:04:05"

// Attendance writes a user's full attendance history as CSV, newest first.
func (h *ExportHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	days, err := h.attendance.ListAll(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%d.csv"`, userID))

	writer := csv.NewWriter(w)
	writer.Write([]string{"Date", "Check In", "Check Out", "Status"})
	for _, d := range days {
		checkIn, checkOut := "", ""
		if d.CheckIn != nil {
			checkIn = d.CheckIn.UTC().Format(timeLayout)
		}
		if d.CheckOut != nil {
			checkOut = d.CheckOut.UTC().Format(timeLayout)
		}
		writer.Write([]string{d.Date.Format(dateLayout), checkIn, checkOut, string(d.Status)})
	}
	writer.Flush()
}

// Summaries writes a user's monthly summaries as CSV, newest first.
func (h *ExportHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	summaries, err := h.summaries.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load summaries")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="summary-%d.csv"`, userID))

	writer := csv.NewWriter(w)
	writer.Write([]string{"Month", "Year", "Total Days", "Present", "Absent", "Leave", "Holiday", "Percentage"})
	for _, s := range summaries {
		writer.Write([]string{
			strconv.Itoa(s.Month),
			strconv.Itoa(s.Year),
			strconv.Itoa(s.TotalDays),
			strconv.Itoa(s.PresentDays),
			strconv.Itoa(s.AbsentDays),
			strconv.Itoa(s.LeaveDays),
			strconv.Itoa(s.HolidayDays),
			strconv.FormatFloat(s.Percentage, 'f', 2, 64) + "%",
		})
	}
	writer.Flush()
}
