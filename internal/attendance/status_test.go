package attendance

import (
	"testing"
	"time"

	"github.com/kozaktomas/attendease/internal/database"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolvePrecedence(t *testing.T) {
	monday := date(2026, time.March, 2)
	saturday := date(2026, time.March, 7)
	checkIn := monday.Add(9 * time.Hour)

	tests := []struct {
		name    string
		date    time.Time
		onLeave bool
		record  *database.AttendanceDay
		want    database.Status
	}{
		{
			name:    "weekend beats everything",
			date:    saturday,
			onLeave: true,
			record:  &database.AttendanceDay{Status: database.StatusPresent},
			want:    database.StatusHoliday,
		},
		{
			name:    "leave beats a recorded scan",
			date:    monday,
			onLeave: true,
			record:  &database.AttendanceDay{Status: database.StatusPresent},
			want:    database.StatusLeave,
		},
		{
			name:   "explicit present record",
			date:   monday,
			record: &database.AttendanceDay{Status: database.StatusPresent, CheckIn: &checkIn},
			want:   database.StatusPresent,
		},
		{
			name:   "open check-in stays checked in",
			date:   monday,
			record: &database.AttendanceDay{Status: database.StatusCheckedIn, CheckIn: &checkIn},
			want:   database.StatusCheckedIn,
		},
		{
			name: "no record means absent",
			date: monday,
			want: database.StatusAbsent,
		},
		{
			name:   "unknown stored status falls back to absent",
			date:   monday,
			record: &database.AttendanceDay{Status: database.Status("garbage")},
			want:   database.StatusAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.date, tt.onLeave, tt.record)
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsWeekend(t *testing.T) {
	if !IsWeekend(date(2026, time.March, 7)) {
		t.Error("expected Saturday to be a weekend")
	}
	if !IsWeekend(date(2026, time.March, 8)) {
		t.Error("expected Sunday to be a weekend")
	}
	if IsWeekend(date(2026, time.March, 6)) {
		t.Error("expected Friday to be a working day")
	}
}

func TestDefaultStatus(t *testing.T) {
	if got := DefaultStatus(date(2026, time.March, 7), false); got != database.StatusHoliday {
		t.Errorf("saturday = %q, want Holiday", got)
	}
	if got := DefaultStatus(date(2026, time.March, 2), true); got != database.StatusLeave {
		t.Errorf("leave day = %q, want Leave", got)
	}
	if got := DefaultStatus(date(2026, time.March, 2), false); got != database.StatusAbsent {
		t.Errorf("working day = %q, want Absent", got)
	}
}
