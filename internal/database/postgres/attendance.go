package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/attendease/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance day storage.
// The (user_id, date) primary key enforces the one-row-per-day invariant;
// all writes are single atomic statements so concurrent scans cannot
// create duplicate rows.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// GetDay returns the row for (user, date) or nil when none exists.
func (r *AttendanceRepository) GetDay(ctx context.Context, userID int64, date time.Time) (*database.AttendanceDay, error) {
	query := `
		SELECT user_id, date, status, check_in, check_out, leave_type
		FROM attendance_days
		WHERE user_id = $1 AND date = $2
	`
	var day database.AttendanceDay
	err := r.pool.QueryRow(ctx, query, userID, date).Scan(
		&day.UserID, &day.Date, &day.Status, &day.CheckIn, &day.CheckOut, &day.LeaveType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance day: %w", err)
	}
	return &day, nil
}

// UpsertCheckIn creates the day with check_in set, or fills in check_in on
// an existing row without one. The conditional DO UPDATE leaves rows with
// a check-in untouched, which makes repeated check-ins idempotent reads.
func (r *AttendanceRepository) UpsertCheckIn(ctx context.Context, userID int64, date time.Time, t time.Time) (bool, error) {
	query := `
		INSERT INTO attendance_days (user_id, date, status, check_in)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, date) DO UPDATE
			SET check_in = EXCLUDED.check_in, status = EXCLUDED.status
			WHERE attendance_days.check_in IS NULL
	`
	result, err := r.pool.Exec(ctx, query, userID, date, database.StatusCheckedIn, t)
	if err != nil {
		return false, fmt.Errorf("upsert check-in: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert check-in: %w", err)
	}
	return n == 1, nil
}

// SetCheckOut completes the day: only a row with a check-in and no
// check-out is updated.
func (r *AttendanceRepository) SetCheckOut(ctx context.Context, userID int64, date time.Time, t time.Time) (bool, error) {
	query := `
		UPDATE attendance_days
		SET check_out = $3, status = $4
		WHERE user_id = $1 AND date = $2
			AND check_in IS NOT NULL AND check_out IS NULL
	`
	result, err := r.pool.Exec(ctx, query, userID, date, t, database.StatusPresent)
	if err != nil {
		return false, fmt.Errorf("set check-out: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set check-out: %w", err)
	}
	return n == 1, nil
}

// CreateDayIfAbsent inserts a bare status row unless one already exists.
func (r *AttendanceRepository) CreateDayIfAbsent(ctx context.Context, userID int64, date time.Time, status database.Status) (bool, error) {
	query := `
		INSERT INTO attendance_days (user_id, date, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, date) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query, userID, date, status)
	if err != nil {
		return false, fmt.Errorf("create attendance day: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create attendance day: %w", err)
	}
	return n == 1, nil
}

// ListDays returns rows for [from, to] inclusive, ordered by date.
func (r *AttendanceRepository) ListDays(ctx context.Context, userID int64, from, to time.Time) ([]database.AttendanceDay, error) {
	query := `
		SELECT user_id, date, status, check_in, check_out, leave_type
		FROM attendance_days
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`
	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query attendance days: %w", err)
	}
	defer rows.Close()

	return scanDays(rows)
}

// ListAll returns every row for a user, newest first.
func (r *AttendanceRepository) ListAll(ctx context.Context, userID int64) ([]database.AttendanceDay, error) {
	query := `
		SELECT user_id, date, status, check_in, check_out, leave_type
		FROM attendance_days
		WHERE user_id = $1
		ORDER BY date DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query attendance days: %w", err)
	}
	defer rows.Close()

	return scanDays(rows)
}

func scanDays(rows *sql.Rows) ([]database.AttendanceDay, error) {
	days := []database.AttendanceDay{}
	for rows.Next() {
		var day database.AttendanceDay
		if err := rows.Scan(&day.UserID, &day.Date, &day.Status, &day.CheckIn, &day.CheckOut, &day.LeaveType); err != nil {
			return nil, fmt.Errorf("scan attendance day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}
