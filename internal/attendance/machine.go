package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendease/internal/database"
)

type ScanAction string

const (
	ActionCheckIn  ScanAction = "check_in"
	ActionCheckOut ScanAction = "check_out"
)

// ScanResult describes the outcome of a single recorded scan. Time is
// the moment the action took effect: the scan timestamp on a fresh
// record, the originally stored timestamp when the action was already
// done.
type ScanResult struct {
	UserID      int64           `json:"user_id"`
	Date        time.Time       `json:"date"`
	Action      ScanAction      `json:"action"`
	Status      database.Status `json:"status"`
	Time        *time.Time      `json:"time,omitempty"`
	AlreadyDone bool            `json:"already_done"`
}

// Machine applies scan events to the attendance store. All writes are
// single atomic statements so concurrent scanners cannot interleave a
// read-modify-write.
type Machine struct {
	store        database.AttendanceStore
	dayStartHour int
}

func NewMachine(store database.AttendanceStore, dayStartHour int) *Machine {
	if dayStartHour < 0 || dayStartHour > 23 {
		dayStartHour = 0
	}
	return &Machine{
		store:        store,
		dayStartHour: dayStartHour,
	}
}

// ScanDate maps a scan timestamp to its attendance date. Scans before the
// day-start hour belong to the previous calendar date, so a night shift
// checking out at 02:00 still closes yesterday's record.
func (m *Machine) ScanDate(scannedAt time.Time) time.Time {
	t := scannedAt
	if t.Hour() < m.dayStartHour {
		t = t.AddDate(0, 0, -1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordScan processes one check-in or check-out event. Repeating an
// action that already happened is reported as already done instead of an
// error. A check-out with no prior check-in fails with ErrSequence and
// leaves the stored state untouched.
func (m *Machine) RecordScan(ctx context.Context, userID int64, scannedAt time.Time, action ScanAction) (*ScanResult, error) {
	date := m.ScanDate(scannedAt)
	switch action {
	case ActionCheckIn:
		return m.checkIn(ctx, userID, date, scannedAt)
	case ActionCheckOut:
		return m.checkOut(ctx, userID, date, scannedAt)
	default:
		return nil, fmt.Errorf("unknown scan action %q", action)
	}
}

func (m *Machine) checkIn(ctx context.Context, userID int64, date, scannedAt time.Time) (*ScanResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		applied, err := m.store.UpsertCheckIn(ctx, userID, date, scannedAt)
		if err != nil {
			return nil, fmt.Errorf("could not record check-in: %w", err)
		}
		if applied {
			return &ScanResult{
				UserID: userID,
				Date:   date,
				Action: ActionCheckIn,
				Status: database.StatusCheckedIn,
				Time:   &scannedAt,
			}, nil
		}

		day, err := m.store.GetDay(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("could not load attendance day: %w", err)
		}
		if day != nil && day.CheckIn != nil {
			return &ScanResult{
				UserID:      userID,
				Date:        date,
				Action:      ActionCheckIn,
				Status:      day.Status,
				Time:        day.CheckIn,
				AlreadyDone: true,
			}, nil
		}
		// record changed under us, try once more
	}

	return nil, database.ErrConflict
}

func (m *Machine) checkOut(ctx context.Context, userID int64, date, scannedAt time.Time) (*ScanResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		applied, err := m.store.SetCheckOut(ctx, userID, date, scannedAt)
		if err != nil {
			return nil, fmt.Errorf("could not record check-out: %w", err)
		}
		if applied {
			return &ScanResult{
				UserID: userID,
				Date:   date,
				Action: ActionCheckOut,
				Status: database.StatusPresent,
				Time:   &scannedAt,
			}, nil
		}

		day, err := m.store.GetDay(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("could not load attendance day: %w", err)
		}
		if day == nil || day.CheckIn == nil {
			return nil, ErrSequence
		}
		if day.CheckOut != nil {
			return &ScanResult{
				UserID:      userID,
				Date:        date,
				Action:      ActionCheckOut,
				Status:      day.Status,
				Time:        day.CheckOut,
				AlreadyDone: true,
			}, nil
		}
	}

	return nil, database.ErrConflict
}
