package attendance

import (
	"time"

	"github.com/kozaktomas/attendease/internal/database"
)

// IsWeekend reports whether the date falls on a Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Resolve decides the effective status for one user and date. Weekends win
// over everything, approved leave wins over recorded scans, an explicit
// record speaks for itself and no record at all means absent. The record
// argument may be nil.
func Resolve(date time.Time, onLeave bool, record *database.AttendanceDay) database.Status {
	if IsWeekend(date) {
		return database.StatusHoliday
	}
	if onLeave {
		return database.StatusLeave
	}
	if record == nil {
		return database.StatusAbsent
	}
	switch record.Status {
	case database.StatusPresent, database.StatusCheckedIn, database.StatusHoliday, database.StatusLeave:
		return record.Status
	default:
		return database.StatusAbsent
	}
}

// DefaultStatus is the status a freshly backfilled day receives when no
// scan was ever recorded for it.
func DefaultStatus(date time.Time, onLeave bool) database.Status {
	if IsWeekend(date) {
		return database.StatusHoliday
	}
	if onLeave {
		return database.StatusLeave
	}
	return database.StatusAbsent
}
