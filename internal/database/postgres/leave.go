package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendease/internal/database"
)

// LeaveRepository provides PostgreSQL-backed leave request storage.
type LeaveRepository struct {
	pool *Pool
}

// NewLeaveRepository creates a new PostgreSQL leave repository.
func NewLeaveRepository(pool *Pool) *LeaveRepository {
	return &LeaveRepository{pool: pool}
}

// Create inserts a new leave request. An empty ID is assigned a fresh uuid.
func (r *LeaveRepository) Create(ctx context.Context, req *database.LeaveRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = database.LeavePending
	}
	query := `
		INSERT INTO leave_requests (id, user_id, start_date, end_date, leave_type, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		req.ID, req.UserID, req.StartDate, req.EndDate, req.LeaveType, req.Reason, req.Status,
	).Scan(&req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}
	return nil
}

// Get returns a leave request by id.
func (r *LeaveRepository) Get(ctx context.Context, id string) (*database.LeaveRequest, error) {
	query := `
		SELECT id, user_id, start_date, end_date, leave_type, reason, status, created_at
		FROM leave_requests
		WHERE id = $1
	`
	var req database.LeaveRequest
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.UserID, &req.StartDate, &req.EndDate,
		&req.LeaveType, &req.Reason, &req.Status, &req.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query leave request: %w", err)
	}
	return &req, nil
}

// ListForUser returns a user's leave requests, newest first.
func (r *LeaveRepository) ListForUser(ctx context.Context, userID int64) ([]database.LeaveRequest, error) {
	query := `
		SELECT id, user_id, start_date, end_date, leave_type, reason, status, created_at
		FROM leave_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query leave requests: %w", err)
	}
	defer rows.Close()

	return scanLeaveRequests(rows)
}

// SetStatus updates the approval status.
func (r *LeaveRepository) SetStatus(ctx context.Context, id string, status string) error {
	result, err := r.pool.Exec(ctx, `UPDATE leave_requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ApprovedOverlapping returns approved requests intersecting [from, to].
func (r *LeaveRepository) ApprovedOverlapping(ctx context.Context, userID int64, from, to time.Time) ([]database.LeaveRequest, error) {
	query := `
		SELECT id, user_id, start_date, end_date, leave_type, reason, status, created_at
		FROM leave_requests
		WHERE user_id = $1 AND status = $2
			AND start_date <= $4 AND end_date >= $3
		ORDER BY start_date
	`
	rows, err := r.pool.Query(ctx, query, userID, database.LeaveApproved, from, to)
	if err != nil {
		return nil, fmt.Errorf("query approved leaves: %w", err)
	}
	defer rows.Close()

	return scanLeaveRequests(rows)
}

func scanLeaveRequests(rows *sql.Rows) ([]database.LeaveRequest, error) {
	requests := []database.LeaveRequest{}
	for rows.Next() {
		var req database.LeaveRequest
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.StartDate, &req.EndDate,
			&req.LeaveType, &req.Reason, &req.Status, &req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan leave request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
