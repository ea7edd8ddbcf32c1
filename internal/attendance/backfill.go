package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendease/internal/database"
)

// Backfiller fills in missing attendance rows for days that never saw a
// scan. Running it twice over the same range is a no-op.
type Backfiller struct {
	attendance database.AttendanceStore
	leave      database.LeaveStore
}

func NewBackfiller(attendance database.AttendanceStore, leave database.LeaveStore) *Backfiller {
	return &Backfiller{
		attendance: attendance,
		leave:      leave,
	}
}

// AutoMarkAbsent creates rows for every date in [from, to) that has no
// record yet. Weekends become Holiday, approved leave becomes Leave and
// everything else becomes Absent. Returns how many rows were created.
func (b *Backfiller) AutoMarkAbsent(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	from = midnight(from)
	to = midnight(to)
	if !from.Before(to) {
		return 0, nil
	}

	leaves, err := b.leave.ApprovedOverlapping(ctx, userID, from, to.AddDate(0, 0, -1))
	if err != nil {
		return 0, fmt.Errorf("could not load leave requests: %w", err)
	}
	onLeave := LeaveDates(leaves)

	created := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		status := DefaultStatus(d, onLeave[d])
		ok, err := b.attendance.CreateDayIfAbsent(ctx, userID, d, status)
		if err != nil {
			return created, fmt.Errorf("could not backfill %s: %w", d.Format("2006-01-02"), err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// LeaveDates expands approved leave requests into the set of dates they
// cover, keyed by midnight UTC.
func LeaveDates(leaves []database.LeaveRequest) map[time.Time]bool {
	dates := make(map[time.Time]bool)
	for _, l := range leaves {
		for d := midnight(l.StartDate); !d.After(midnight(l.EndDate)); d = d.AddDate(0, 0, 1) {
			dates[d] = true
		}
	}
	return dates
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
