package database

import (
	"context"
	"time"
)

// EmbeddingStore persists face embeddings keyed by user.
type EmbeddingStore interface {
	// Add appends a vector for a user. Returns ErrInvalidVector when the
	// vector's dimension does not match the store's fixed dimension.
	// (user, image_ref) is unique; re-adding the same ref is an error.
	Add(ctx context.Context, emb *StoredEmbedding) error

	// AllForUser returns the user's vectors in insertion order,
	// an empty slice when none exist.
	AllForUser(ctx context.Context, userID int64) ([]StoredEmbedding, error)

	// AllByUser returns every user's vectors in one bulk read.
	// Used to load the full candidate set for a recognition attempt.
	AllByUser(ctx context.Context) (map[int64][][]float32, error)

	// All returns every stored embedding row. Used to build the optional
	// in-memory candidate index.
	All(ctx context.Context) ([]StoredEmbedding, error)

	// Clear removes all vectors for a user and reports how many were removed.
	Clear(ctx context.Context, userID int64) (int, error)

	Count(ctx context.Context) (int, error)
}

// AttendanceStore persists per-day attendance rows with a unique
// (user, date) constraint.
type AttendanceStore interface {
	// GetDay returns the row for (user, date) or nil when none exists.
	GetDay(ctx context.Context, userID int64, date time.Time) (*AttendanceDay, error)

	// UpsertCheckIn atomically creates the (user, date) row with the given
	// check-in time, or fills in check_in on an existing row that has none
	// (e.g. a backfilled Absent row). Returns false when check_in was
	// already set, leaving the row untouched.
	UpsertCheckIn(ctx context.Context, userID int64, date time.Time, t time.Time) (bool, error)

	// SetCheckOut sets check_out and flips status to Present, but only on a
	// row whose check_in is set and check_out is empty. Returns false when
	// no such row matched.
	SetCheckOut(ctx context.Context, userID int64, date time.Time, t time.Time) (bool, error)

	// CreateDayIfAbsent inserts a bare status row unless (user, date)
	// already exists. Reports whether a row was created.
	CreateDayIfAbsent(ctx context.Context, userID int64, date time.Time, status Status) (bool, error)

	// ListDays returns rows for [from, to] inclusive, ordered by date.
	ListDays(ctx context.Context, userID int64, from, to time.Time) ([]AttendanceDay, error)

	// ListAll returns every row for a user, newest first.
	ListAll(ctx context.Context, userID int64) ([]AttendanceDay, error)
}

// LeaveStore persists leave requests.
type LeaveStore interface {
	Create(ctx context.Context, req *LeaveRequest) error
	Get(ctx context.Context, id string) (*LeaveRequest, error)
	ListForUser(ctx context.Context, userID int64) ([]LeaveRequest, error)
	SetStatus(ctx context.Context, id string, status string) error

	// ApprovedOverlapping returns approved requests whose [start, end]
	// intersects [from, to].
	ApprovedOverlapping(ctx context.Context, userID int64, from, to time.Time) ([]LeaveRequest, error)
}

// SummaryStore persists derived monthly summaries.
type SummaryStore interface {
	// Upsert fully replaces the summary for (user, month, year).
	Upsert(ctx context.Context, s *MonthlySummary) error
	Get(ctx context.Context, userID int64, month, year int) (*MonthlySummary, error)
	ListForUser(ctx context.Context, userID int64) ([]MonthlySummary, error)
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	SetApproved(ctx context.Context, id int64, approved bool) error
	SetFaceData(ctx context.Context, id int64, has bool, count int) error

	// UpsertByEnrollment creates or updates a user keyed by enrollment
	// number. Used by roster imports. Reports whether a row was created.
	UpsertByEnrollment(ctx context.Context, u *User) (bool, error)
}
