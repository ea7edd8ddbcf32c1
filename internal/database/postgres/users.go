package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendease/internal/database"
)

// UserRepository provides PostgreSQL-backed user storage.
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, email, enrollment_no, user_type, approved, has_face_data, face_image_count, created_at`

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *database.User) error {
	if u.UserType == "" {
		u.UserType = "student"
	}
	query := `
		INSERT INTO users (username, email, enrollment_no, user_type, approved)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		u.Username, u.Email, u.EnrollmentNo, u.UserType, u.Approved,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*database.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername returns a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*database.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*database.User, error) {
	var u database.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.EnrollmentNo, &u.UserType,
		&u.Approved, &u.HasFaceData, &u.FaceImageCount, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// List returns all users ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]database.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []database.User{}
	for rows.Next() {
		var u database.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.EnrollmentNo, &u.UserType,
			&u.Approved, &u.HasFaceData, &u.FaceImageCount, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetApproved updates the approval flag.
func (r *UserRepository) SetApproved(ctx context.Context, id int64, approved bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return fmt.Errorf("update user approval: %w", err)
	}
	return requireRow(result)
}

// SetFaceData updates the face enrollment flag and image count.
func (r *UserRepository) SetFaceData(ctx context.Context, id int64, has bool, count int) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET has_face_data = $2, face_image_count = $3 WHERE id = $1`, id, has, count)
	if err != nil {
		return fmt.Errorf("update user face data: %w", err)
	}
	return requireRow(result)
}

// UpsertByEnrollment creates or updates a user keyed by enrollment number.
func (r *UserRepository) UpsertByEnrollment(ctx context.Context, u *database.User) (bool, error) {
	if u.EnrollmentNo == "" {
		return false, errors.New("enrollment number required for upsert")
	}
	if u.UserType == "" {
		u.UserType = "student"
	}
	query := `
		INSERT INTO users (username, email, enrollment_no, user_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (enrollment_no) WHERE enrollment_no <> '' DO UPDATE
			SET username = EXCLUDED.username,
				email = EXCLUDED.email,
				user_type = EXCLUDED.user_type
		RETURNING id, created_at, (xmax = 0) AS inserted
	`
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		u.Username, u.Email, u.EnrollmentNo, u.UserType,
	).Scan(&u.ID, &u.CreatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return inserted, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}
