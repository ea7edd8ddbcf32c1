package database

import (
	"time"
)

// Status is the per-day attendance status stored in attendance_days.
// The string values are part of the on-disk and CSV export formats.
type Status string

const (
	StatusAbsent    Status = "Absent"
	StatusCheckedIn Status = "Checked In"
	StatusPresent   Status = "Present"
	StatusHoliday   Status = "Holiday"
	StatusLeave     Status = "Leave"
)

// Leave request approval states.
const (
	LeavePending  = "Pending"
	LeaveApproved = "Approved"
	LeaveRejected = "Rejected"
)

// User is a registered person (student or faculty member).
type User struct {
	ID             int64
	Username       string
	Email          string
	EnrollmentNo   string
	UserType       string // "student" or "faculty"
	Approved       bool
	HasFaceData    bool
	FaceImageCount int
	CreatedAt      time.Time
}

// StoredEmbedding is one face embedding captured for a user.
// Embeddings are append-only; a user accumulates one row per enrolled image.
type StoredEmbedding struct {
	ID        int64
	UserID    int64
	ImageRef  string // reference to the source image the vector was computed from
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time
}

// AttendanceDay is the single record of a user's presence for one calendar date.
// At most one row exists per (user, date).
type AttendanceDay struct {
	UserID    int64
	Date      time.Time // midnight UTC
	Status    Status
	CheckIn   *time.Time
	CheckOut  *time.Time
	LeaveType string
}

// LeaveRequest is a requested leave interval. Only Approved requests
// affect attendance aggregation.
type LeaveRequest struct {
	ID        string // uuid
	UserID    int64
	StartDate time.Time
	EndDate   time.Time
	LeaveType string
	Reason    string
	Status    string
	CreatedAt time.Time
}

// MonthlySummary holds the derived per-month counters for a user.
// It is fully recomputed from attendance_days and leave_requests,
// never incrementally patched.
type MonthlySummary struct {
	UserID      int64
	Month       int
	Year        int
	TotalDays   int
	PresentDays int
	AbsentDays  int
	LeaveDays   int
	HolidayDays int
	Percentage  float64
}
