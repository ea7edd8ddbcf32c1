package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/attendease/internal/database"
)

// Aggregator recomputes monthly summaries from the per-day rows. Summaries
// are derived data; recomputing is always safe.
type Aggregator struct {
	attendance database.AttendanceStore
	leave      database.LeaveStore
	summaries  database.SummaryStore
}

func NewAggregator(attendance database.AttendanceStore, leave database.LeaveStore, summaries database.SummaryStore) *Aggregator {
	return &Aggregator{
		attendance: attendance,
		leave:      leave,
		summaries:  summaries,
	}
}

// Recompute rebuilds one user's summary for the given month and stores it.
// The month is counted up to and including now's date, so the summary for
// the current month grows day by day.
func (a *Aggregator) Recompute(ctx context.Context, userID int64, month, year int, now time.Time) (*database.MonthlySummary, error) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	records, err := a.attendance.ListDays(ctx, userID, first, last)
	if err != nil {
		return nil, fmt.Errorf("could not load attendance days: %w", err)
	}
	leaves, err := a.leave.ApprovedOverlapping(ctx, userID, first, last)
	if err != nil {
		return nil, fmt.Errorf("could not load leave requests: %w", err)
	}

	summary := ComputeSummary(userID, month, year, now, records, LeaveDates(leaves))
	if err := a.summaries.Upsert(ctx, summary); err != nil {
		return nil, fmt.Errorf("could not store summary: %w", err)
	}
	return summary, nil
}

// ComputeSummary counts one month's days into exactly one bucket each, so
// present + absent + leave + holiday always equals total days. For the
// current month only days up to now's date are counted; future days do not
// drag the percentage down.
func ComputeSummary(userID int64, month, year int, now time.Time, records []database.AttendanceDay, onLeave map[time.Time]bool) *database.MonthlySummary {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	if today := midnight(now); today.Before(last) {
		last = today
	}

	byDate := make(map[time.Time]*database.AttendanceDay, len(records))
	for i := range records {
		byDate[midnight(records[i].Date)] = &records[i]
	}

	s := &database.MonthlySummary{
		UserID: userID,
		Month:  month,
		Year:   year,
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		s.TotalDays++
		switch Resolve(d, onLeave[d], byDate[d]) {
		case database.StatusPresent, database.StatusCheckedIn:
			s.PresentDays++
		case database.StatusLeave:
			s.LeaveDays++
		case database.StatusHoliday:
			s.HolidayDays++
		default:
			s.AbsentDays++
		}
	}

	s.Percentage = Percentage(s.PresentDays, s.TotalDays, s.HolidayDays)
	return s
}

// Percentage is present days over working days, in percent rounded to two
// decimals. A month with no working days scores zero.
func Percentage(present, total, holiday int) float64 {
	working := total - holiday
	if working <= 0 {
		return 0
	}
	p := float64(present) / float64(working) * 100
	return math.Round(p*100) / 100
}
