// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/attendease/internal/database"
)

// MockEmbeddingStore is a mock implementation of database.EmbeddingStore
type MockEmbeddingStore struct {
	mu         sync.RWMutex
	embeddings []database.StoredEmbedding
	nextID     int64
	dim        int

	// Error injection
	AddError        error
	AllForUserError error
	AllByUserError  error
	AllError        error
	ClearError      error
	CountError      error
}

// NewMockEmbeddingStore creates a new mock embedding store with the given
// fixed vector dimension
func NewMockEmbeddingStore(dim int) *MockEmbeddingStore {
	return &MockEmbeddingStore{dim: dim}
}

// Add appends a vector for a user
func (m *MockEmbeddingStore) Add(ctx context.Context, emb *database.StoredEmbedding) error {
	if m.AddError != nil {
		return m.AddError
	}
	if len(emb.Embedding) != m.dim {
		return fmt.Errorf("%w: got %d values, want %d", database.ErrInvalidVector, len(emb.Embedding), m.dim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.embeddings {
		if e.UserID == emb.UserID && e.ImageRef == emb.ImageRef {
			return fmt.Errorf("embedding for user %d image %q already exists", emb.UserID, emb.ImageRef)
		}
	}
	m.nextID++
	emb.ID = m.nextID
	m.embeddings = append(m.embeddings, *emb)
	return nil
}

// AllForUser returns the user's vectors in insertion order
func (m *MockEmbeddingStore) AllForUser(ctx context.Context, userID int64) ([]database.StoredEmbedding, error) {
	if m.AllForUserError != nil {
		return nil, m.AllForUserError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := []database.StoredEmbedding{}
	for _, e := range m.embeddings {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	return result, nil
}

// AllByUser returns every user's vectors in one bulk read
func (m *MockEmbeddingStore) AllByUser(ctx context.Context) (map[int64][][]float32, error) {
	if m.AllByUserError != nil {
		return nil, m.AllByUserError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[int64][][]float32)
	for _, e := range m.embeddings {
		result[e.UserID] = append(result[e.UserID], e.Embedding)
	}
	return result, nil
}

// All returns every stored embedding row
func (m *MockEmbeddingStore) All(ctx context.Context) ([]database.StoredEmbedding, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredEmbedding, len(m.embeddings))
	copy(result, m.embeddings)
	return result, nil
}

// Clear removes all vectors for a user
func (m *MockEmbeddingStore) Clear(ctx context.Context, userID int64) (int, error) {
	if m.ClearError != nil {
		return 0, m.ClearError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []database.StoredEmbedding
	removed := 0
	for _, e := range m.embeddings {
		if e.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.embeddings = kept
	return removed, nil
}

// Count returns the total number of embeddings
func (m *MockEmbeddingStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.embeddings), nil
}

type dayKey struct {
	userID int64
	date   string
}

// MockAttendanceStore is a mock implementation of database.AttendanceStore
type MockAttendanceStore struct {
	mu   sync.RWMutex
	days map[dayKey]*database.AttendanceDay

	// Error injection
	GetDayError        error
	UpsertCheckInError error
	SetCheckOutError   error
	CreateDayError     error
	ListDaysError      error
	ListAllError       error
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{days: make(map[dayKey]*database.AttendanceDay)}
}

func key(userID int64, date time.Time) dayKey {
	return dayKey{userID: userID, date: date.Format("2006-01-02")}
}

// SetDay seeds a row directly, bypassing the state transitions
func (m *MockAttendanceStore) SetDay(day database.AttendanceDay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[key(day.UserID, day.Date)] = &day
}

// GetDay returns the row for (user, date) or nil
func (m *MockAttendanceStore) GetDay(ctx context.Context, userID int64, date time.Time) (*database.AttendanceDay, error) {
	if m.GetDayError != nil {
		return nil, m.GetDayError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.days[key(userID, date)]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// UpsertCheckIn creates the row or fills in a missing check_in
func (m *MockAttendanceStore) UpsertCheckIn(ctx context.Context, userID int64, date time.Time, t time.Time) (bool, error) {
	if m.UpsertCheckInError != nil {
		return false, m.UpsertCheckInError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(userID, date)
	d, ok := m.days[k]
	if !ok {
		m.days[k] = &database.AttendanceDay{
			UserID:  userID,
			Date:    date,
			Status:  database.StatusCheckedIn,
			CheckIn: &t,
		}
		return true, nil
	}
	if d.CheckIn != nil {
		return false, nil
	}
	d.CheckIn = &t
	d.Status = database.StatusCheckedIn
	return true, nil
}

// SetCheckOut closes an open check-in
func (m *MockAttendanceStore) SetCheckOut(ctx context.Context, userID int64, date time.Time, t time.Time) (bool, error) {
	if m.SetCheckOutError != nil {
		return false, m.SetCheckOutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[key(userID, date)]
	if !ok || d.CheckIn == nil || d.CheckOut != nil {
		return false, nil
	}
	d.CheckOut = &t
	d.Status = database.StatusPresent
	return true, nil
}

// CreateDayIfAbsent inserts a bare status row unless one exists
func (m *MockAttendanceStore) CreateDayIfAbsent(ctx context.Context, userID int64, date time.Time, status database.Status) (bool, error) {
	if m.CreateDayError != nil {
		return false, m.CreateDayError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(userID, date)
	if _, ok := m.days[k]; ok {
		return false, nil
	}
	m.days[k] = &database.AttendanceDay{UserID: userID, Date: date, Status: status}
	return true, nil
}

// ListDays returns rows for [from, to] inclusive, ordered by date
func (m *MockAttendanceStore) ListDays(ctx context.Context, userID int64, from, to time.Time) ([]database.AttendanceDay, error) {
	if m.ListDaysError != nil {
		return nil, m.ListDaysError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.AttendanceDay
	for _, d := range m.days {
		if d.UserID == userID && !d.Date.Before(from) && !d.Date.After(to) {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// ListAll returns every row for a user, newest first
func (m *MockAttendanceStore) ListAll(ctx context.Context, userID int64) ([]database.AttendanceDay, error) {
	if m.ListAllError != nil {
		return nil, m.ListAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.AttendanceDay
	for _, d := range m.days {
		if d.UserID == userID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

// MockLeaveStore is a mock implementation of database.LeaveStore
type MockLeaveStore struct {
	mu       sync.RWMutex
	requests map[string]*database.LeaveRequest
	counter  int

	// Error injection
	CreateError      error
	GetError         error
	ListError        error
	SetStatusError   error
	OverlappingError error
}

// NewMockLeaveStore creates a new mock leave store
func NewMockLeaveStore() *MockLeaveStore {
	return &MockLeaveStore{requests: make(map[string]*database.LeaveRequest)}
}

// Create stores a leave request, assigning an id
func (m *MockLeaveStore) Create(ctx context.Context, req *database.LeaveRequest) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		m.counter++
		req.ID = fmt.Sprintf("leave-%d", m.counter)
	}
	if req.Status == "" {
		req.Status = database.LeavePending
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

// Get returns a leave request by id
func (m *MockLeaveStore) Get(ctx context.Context, id string) (*database.LeaveRequest, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListForUser returns all requests for a user
func (m *MockLeaveStore) ListForUser(ctx context.Context, userID int64) ([]database.LeaveRequest, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.LeaveRequest
	for _, r := range m.requests {
		if r.UserID == userID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SetStatus updates the approval status of a request
func (m *MockLeaveStore) SetStatus(ctx context.Context, id string, status string) error {
	if m.SetStatusError != nil {
		return m.SetStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return database.ErrNotFound
	}
	r.Status = status
	return nil
}

// ApprovedOverlapping returns approved requests intersecting [from, to]
func (m *MockLeaveStore) ApprovedOverlapping(ctx context.Context, userID int64, from, to time.Time) ([]database.LeaveRequest, error) {
	if m.OverlappingError != nil {
		return nil, m.OverlappingError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.LeaveRequest
	for _, r := range m.requests {
		if r.UserID != userID || r.Status != database.LeaveApproved {
			continue
		}
		if !r.StartDate.After(to) && !r.EndDate.Before(from) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

type summaryKey struct {
	userID int64
	month  int
	year   int
}

// MockSummaryStore is a mock implementation of database.SummaryStore
type MockSummaryStore struct {
	mu        sync.RWMutex
	summaries map[summaryKey]*database.MonthlySummary

	// Error injection
	UpsertError error
	GetError    error
	ListError   error
}

// NewMockSummaryStore creates a new mock summary store
func NewMockSummaryStore() *MockSummaryStore {
	return &MockSummaryStore{summaries: make(map[summaryKey]*database.MonthlySummary)}
}

// Upsert fully replaces the summary for (user, month, year)
func (m *MockSummaryStore) Upsert(ctx context.Context, s *database.MonthlySummary) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.summaries[summaryKey{s.UserID, s.Month, s.Year}] = &cp
	return nil
}

// Get returns the summary for (user, month, year) or nil
func (m *MockSummaryStore) Get(ctx context.Context, userID int64, month, year int) (*database.MonthlySummary, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[summaryKey{userID, month, year}]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// ListForUser returns all summaries for a user, newest first
func (m *MockSummaryStore) ListForUser(ctx context.Context, userID int64) ([]database.MonthlySummary, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.MonthlySummary
	for _, s := range m.summaries {
		if s.UserID == userID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})
	return result, nil
}

// MockUserStore is a mock implementation of database.UserStore
type MockUserStore struct {
	mu     sync.RWMutex
	users  map[int64]*database.User
	nextID int64

	// Error injection
	CreateError      error
	GetError         error
	ListError        error
	SetApprovedError error
	SetFaceDataError error
	UpsertError      error
}

// NewMockUserStore creates a new mock user store
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[int64]*database.User)}
}

// AddUser seeds a user directly
func (m *MockUserStore) AddUser(u database.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	} else if u.ID > m.nextID {
		m.nextID = u.ID
	}
	m.users[u.ID] = &u
}

// Create stores a new user, assigning an id
func (m *MockUserStore) Create(ctx context.Context, u *database.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// GetByID returns a user by id
func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByUsername returns a user by username
func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

// List returns all users ordered by id
func (m *MockUserStore) List(ctx context.Context) ([]database.User, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.User
	for _, u := range m.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SetApproved flips the approval flag
func (m *MockUserStore) SetApproved(ctx context.Context, id int64, approved bool) error {
	if m.SetApprovedError != nil {
		return m.SetApprovedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.Approved = approved
	return nil
}

// SetFaceData updates the face enrollment counters
func (m *MockUserStore) SetFaceData(ctx context.Context, id int64, has bool, count int) error {
	if m.SetFaceDataError != nil {
		return m.SetFaceDataError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.HasFaceData = has
	u.FaceImageCount = count
	return nil
}

// UpsertByEnrollment creates or updates a user keyed by enrollment number
func (m *MockUserStore) UpsertByEnrollment(ctx context.Context, u *database.User) (bool, error) {
	if m.UpsertError != nil {
		return false, m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.EnrollmentNo != "" {
		for _, existing := range m.users {
			if existing.EnrollmentNo == u.EnrollmentNo {
				existing.Username = u.Username
				existing.Email = u.Email
				existing.UserType = u.UserType
				u.ID = existing.ID
				u.CreatedAt = existing.CreatedAt
				return false, nil
			}
		}
	}
	m.nextID++
	u.ID = m.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	m.users[u.ID] = &cp
	return true, nil
}

// Verify interface compliance
var _ database.EmbeddingStore = (*MockEmbeddingStore)(nil)
var _ database.AttendanceStore = (*MockAttendanceStore)(nil)
var _ database.LeaveStore = (*MockLeaveStore)(nil)
var _ database.SummaryStore = (*MockSummaryStore)(nil)
var _ database.UserStore = (*MockUserStore)(nil)
