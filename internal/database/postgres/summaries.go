package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendease/internal/database"
)

// SummaryRepository provides PostgreSQL-backed monthly summary storage.
type SummaryRepository struct {
	pool *Pool
}

// NewSummaryRepository creates a new PostgreSQL summary repository.
func NewSummaryRepository(pool *Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// Upsert fully replaces the summary for (user, month, year).
func (r *SummaryRepository) Upsert(ctx context.Context, s *database.MonthlySummary) error {
	query := `
		INSERT INTO monthly_summaries
			(user_id, month, year, total_days, present_days, absent_days, leave_days, holiday_days, percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, month, year) DO UPDATE SET
			total_days = EXCLUDED.total_days,
			present_days = EXCLUDED.present_days,
			absent_days = EXCLUDED.absent_days,
			leave_days = EXCLUDED.leave_days,
			holiday_days = EXCLUDED.holiday_days,
			percentage = EXCLUDED.percentage
	`
	_, err := r.pool.Exec(ctx, query,
		s.UserID, s.Month, s.Year,
		s.TotalDays, s.PresentDays, s.AbsentDays, s.LeaveDays, s.HolidayDays, s.Percentage,
	)
	if err != nil {
		return fmt.Errorf("upsert monthly summary: %w", err)
	}
	return nil
}

// Get returns the summary for (user, month, year) or ErrNotFound.
func (r *SummaryRepository) Get(ctx context.Context, userID int64, month, year int) (*database.MonthlySummary, error) {
	query := `
		SELECT user_id, month, year, total_days, present_days, absent_days, leave_days, holiday_days, percentage
		FROM monthly_summaries
		WHERE user_id = $1 AND month = $2 AND year = $3
	`
	var s database.MonthlySummary
	err := r.pool.QueryRow(ctx, query, userID, month, year).Scan(
		&s.UserID, &s.Month, &s.Year,
		&s.TotalDays, &s.PresentDays, &s.AbsentDays, &s.LeaveDays, &s.HolidayDays, &s.Percentage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query monthly summary: %w", err)
	}
	return &s, nil
}

// ListForUser returns all summaries for a user, newest month first.
func (r *SummaryRepository) ListForUser(ctx context.Context, userID int64) ([]database.MonthlySummary, error) {
	query := `
		SELECT user_id, month, year, total_days, present_days, absent_days, leave_days, holiday_days, percentage
		FROM monthly_summaries
		WHERE user_id = $1
		ORDER BY year DESC, month DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query monthly summaries: %w", err)
	}
	defer rows.Close()

	summaries := []database.MonthlySummary{}
	for rows.Next() {
		var s database.MonthlySummary
		if err := rows.Scan(
			&s.UserID, &s.Month, &s.Year,
			&s.TotalDays, &s.PresentDays, &s.AbsentDays, &s.LeaveDays, &s.HolidayDays, &s.Percentage,
		); err != nil {
			return nil, fmt.Errorf("scan monthly summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
