//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func createTestUser(t *testing.T, pool *Pool, username string) *database.User {
	t.Helper()
	u := &database.User{
		Username:     username,
		Email:        username + "@campus.test",
		EnrollmentNo: "EN-" + username,
		UserType:     "student",
		Approved:     true,
	}
	if err := NewUserRepository(pool).Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func testVector(seed int) []float32 {
	v := make([]float32, FaceEmbeddingDim)
	for i := range v {
		v[i] = float32(i+seed) / float32(FaceEmbeddingDim)
	}
	return v
}

func TestUserRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewUserRepository(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		u := createTestUser(t, pool, "jana.novakova")
		if u.ID == 0 {
			t.Fatal("Expected assigned ID, got 0")
		}

		got, err := repo.GetByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("Failed to get user: %v", err)
		}
		if got.Username != "jana.novakova" {
			t.Errorf("Expected username 'jana.novakova', got '%s'", got.Username)
		}

		byName, err := repo.GetByUsername(ctx, "jana.novakova")
		if err != nil {
			t.Fatalf("Failed to get user by username: %v", err)
		}
		if byName.ID != u.ID {
			t.Errorf("Expected ID %d, got %d", u.ID, byName.ID)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetApproved", func(t *testing.T) {
		u := createTestUser(t, pool, "petr.svoboda")
		if err := repo.SetApproved(ctx, u.ID, false); err != nil {
			t.Fatalf("Failed to set approved: %v", err)
		}
		got, _ := repo.GetByID(ctx, u.ID)
		if got.Approved {
			t.Error("Expected approved false, got true")
		}
	})

	t.Run("SetFaceData", func(t *testing.T) {
		u := createTestUser(t, pool, "eva.cerna")
		if err := repo.SetFaceData(ctx, u.ID, true, 3); err != nil {
			t.Fatalf("Failed to set face data: %v", err)
		}
		got, _ := repo.GetByID(ctx, u.ID)
		if !got.HasFaceData || got.FaceImageCount != 3 {
			t.Errorf("Expected has_face_data with count 3, got %v/%d", got.HasFaceData, got.FaceImageCount)
		}
	})

	t.Run("UpsertByEnrollment", func(t *testing.T) {
		u := &database.User{Username: "marek.dvorak", EnrollmentNo: "EN-2026-001", UserType: "student"}
		created, err := repo.UpsertByEnrollment(ctx, u)
		if err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
		if !created {
			t.Error("Expected created true on first upsert")
		}

		u2 := &database.User{Username: "marek.dvorak", EnrollmentNo: "EN-2026-001", Email: "marek@campus.test", UserType: "student"}
		created, err = repo.UpsertByEnrollment(ctx, u2)
		if err != nil {
			t.Fatalf("Failed to upsert again: %v", err)
		}
		if created {
			t.Error("Expected created false on second upsert")
		}

		got, _ := repo.GetByID(ctx, u2.ID)
		if got.Email != "marek@campus.test" {
			t.Errorf("Expected updated email, got '%s'", got.Email)
		}
	})
}

func TestEmbeddingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEmbeddingRepository(pool)
	user := createTestUser(t, pool, "face.owner")

	t.Run("AddAndAllForUser", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			emb := &database.StoredEmbedding{
				UserID:    user.ID,
				ImageRef:  fmt.Sprintf("enroll-%d.jpg", i),
				Embedding: testVector(i),
				Model:     "sface",
				Dim:       FaceEmbeddingDim,
			}
			if err := repo.Add(ctx, emb); err != nil {
				t.Fatalf("Failed to add embedding %d: %v", i, err)
			}
		}

		got, err := repo.AllForUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("Failed to list embeddings: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Expected 3 embeddings, got %d", len(got))
		}
		if len(got[0].Embedding) != FaceEmbeddingDim {
			t.Errorf("Expected %d dimensions, got %d", FaceEmbeddingDim, len(got[0].Embedding))
		}
	})

	t.Run("DuplicateImageRef", func(t *testing.T) {
		emb := &database.StoredEmbedding{
			UserID:    user.ID,
			ImageRef:  "enroll-0.jpg",
			Embedding: testVector(9),
			Model:     "sface",
			Dim:       FaceEmbeddingDim,
		}
		if err := repo.Add(ctx, emb); err == nil {
			t.Error("Expected error on duplicate (user, image_ref), got nil")
		}
	})

	t.Run("WrongDimension", func(t *testing.T) {
		emb := &database.StoredEmbedding{
			UserID:    user.ID,
			ImageRef:  "bad-dim.jpg",
			Embedding: make([]float32, 128),
			Model:     "sface",
			Dim:       128,
		}
		err := repo.Add(ctx, emb)
		if err == nil {
			t.Fatal("Expected error for wrong dimension, got nil")
		}
	})

	t.Run("AllByUser", func(t *testing.T) {
		other := createTestUser(t, pool, "second.owner")
		emb := &database.StoredEmbedding{
			UserID:    other.ID,
			ImageRef:  "enroll-0.jpg",
			Embedding: testVector(50),
			Model:     "sface",
			Dim:       FaceEmbeddingDim,
		}
		if err := repo.Add(ctx, emb); err != nil {
			t.Fatalf("Failed to add embedding: %v", err)
		}

		byUser, err := repo.AllByUser(ctx)
		if err != nil {
			t.Fatalf("Failed to load candidates: %v", err)
		}
		if len(byUser) != 2 {
			t.Errorf("Expected 2 users, got %d", len(byUser))
		}
		if len(byUser[user.ID]) != 3 {
			t.Errorf("Expected 3 vectors for first user, got %d", len(byUser[user.ID]))
		}
	})

	t.Run("ClearAndCount", func(t *testing.T) {
		removed, err := repo.Clear(ctx, user.ID)
		if err != nil {
			t.Fatalf("Failed to clear: %v", err)
		}
		if removed != 3 {
			t.Errorf("Expected 3 removed, got %d", removed)
		}

		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 remaining, got %d", count)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewAttendanceRepository(pool)
	user := createTestUser(t, pool, "daily.scanner")

	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	morning := day.Add(9 * time.Hour)
	evening := day.Add(17 * time.Hour)

	t.Run("UpsertCheckIn", func(t *testing.T) {
		applied, err := repo.UpsertCheckIn(ctx, user.ID, day, morning)
		if err != nil {
			t.Fatalf("Failed to upsert check-in: %v", err)
		}
		if !applied {
			t.Fatal("Expected applied true on first check-in")
		}

		applied, err = repo.UpsertCheckIn(ctx, user.ID, day, morning.Add(time.Hour))
		if err != nil {
			t.Fatalf("Failed to upsert second check-in: %v", err)
		}
		if applied {
			t.Error("Expected applied false on second check-in")
		}

		got, err := repo.GetDay(ctx, user.ID, day)
		if err != nil {
			t.Fatalf("Failed to get day: %v", err)
		}
		if got.Status != database.StatusCheckedIn {
			t.Errorf("Expected status Checked In, got %s", got.Status)
		}
		if got.CheckIn == nil || !got.CheckIn.Equal(morning) {
			t.Errorf("Expected first check-in time kept, got %v", got.CheckIn)
		}
	})

	t.Run("SetCheckOut", func(t *testing.T) {
		applied, err := repo.SetCheckOut(ctx, user.ID, day, evening)
		if err != nil {
			t.Fatalf("Failed to set check-out: %v", err)
		}
		if !applied {
			t.Fatal("Expected applied true")
		}

		got, _ := repo.GetDay(ctx, user.ID, day)
		if got.Status != database.StatusPresent {
			t.Errorf("Expected status Present, got %s", got.Status)
		}

		applied, err = repo.SetCheckOut(ctx, user.ID, day, evening.Add(time.Hour))
		if err != nil {
			t.Fatalf("Failed on second check-out: %v", err)
		}
		if applied {
			t.Error("Expected applied false on second check-out")
		}
	})

	t.Run("CheckOutWithoutCheckIn", func(t *testing.T) {
		other := day.AddDate(0, 0, 1)
		applied, err := repo.SetCheckOut(ctx, user.ID, other, evening)
		if err != nil {
			t.Fatalf("Failed to set check-out: %v", err)
		}
		if applied {
			t.Error("Expected applied false when no check-in exists")
		}
	})

	t.Run("CheckInFillsBackfilledRow", func(t *testing.T) {
		backfilled := day.AddDate(0, 0, 2)
		created, err := repo.CreateDayIfAbsent(ctx, user.ID, backfilled, database.StatusAbsent)
		if err != nil {
			t.Fatalf("Failed to create absent row: %v", err)
		}
		if !created {
			t.Fatal("Expected created true")
		}

		applied, err := repo.UpsertCheckIn(ctx, user.ID, backfilled, morning)
		if err != nil {
			t.Fatalf("Failed to check in on backfilled row: %v", err)
		}
		if !applied {
			t.Error("Expected check-in to fill the Absent row")
		}

		got, _ := repo.GetDay(ctx, user.ID, backfilled)
		if got.Status != database.StatusCheckedIn {
			t.Errorf("Expected status Checked In, got %s", got.Status)
		}
	})

	t.Run("CreateDayIfAbsentIdempotent", func(t *testing.T) {
		created, err := repo.CreateDayIfAbsent(ctx, user.ID, day, database.StatusAbsent)
		if err != nil {
			t.Fatalf("Failed on existing day: %v", err)
		}
		if created {
			t.Error("Expected created false for an existing day")
		}

		got, _ := repo.GetDay(ctx, user.ID, day)
		if got.Status != database.StatusPresent {
			t.Errorf("Expected existing status untouched, got %s", got.Status)
		}
	})

	t.Run("ListDaysAndListAll", func(t *testing.T) {
		days, err := repo.ListDays(ctx, user.ID, day, day.AddDate(0, 0, 2))
		if err != nil {
			t.Fatalf("Failed to list days: %v", err)
		}
		if len(days) != 2 {
			t.Errorf("Expected 2 rows in range, got %d", len(days))
		}
		if len(days) == 2 && days[0].Date.After(days[1].Date) {
			t.Error("Expected ascending date order")
		}

		all, err := repo.ListAll(ctx, user.ID)
		if err != nil {
			t.Fatalf("Failed to list all: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("Expected 2 rows total, got %d", len(all))
		}
		if len(all) == 2 && all[0].Date.Before(all[1].Date) {
			t.Error("Expected newest first")
		}
	})
}

func TestLeaveRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewLeaveRepository(pool)
	user := createTestUser(t, pool, "leave.taker")

	start := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)

	t.Run("CreateAndGet", func(t *testing.T) {
		req := &database.LeaveRequest{
			UserID:    user.ID,
			StartDate: start,
			EndDate:   end,
			LeaveType: "sick",
			Reason:    "flu",
		}
		if err := repo.Create(ctx, req); err != nil {
			t.Fatalf("Failed to create leave request: %v", err)
		}
		if req.ID == "" {
			t.Fatal("Expected assigned uuid")
		}

		got, err := repo.Get(ctx, req.ID)
		if err != nil {
			t.Fatalf("Failed to get leave request: %v", err)
		}
		if got.Status != database.LeavePending {
			t.Errorf("Expected Pending, got %s", got.Status)
		}
	})

	t.Run("ApprovedOverlapping", func(t *testing.T) {
		reqs, err := repo.ListForUser(ctx, user.ID)
		if err != nil || len(reqs) != 1 {
			t.Fatalf("Failed to list requests: %v (%d)", err, len(reqs))
		}

		overlapping, err := repo.ApprovedOverlapping(ctx, user.ID, start, end)
		if err != nil {
			t.Fatalf("Failed to query overlapping: %v", err)
		}
		if len(overlapping) != 0 {
			t.Errorf("Expected no approved requests yet, got %d", len(overlapping))
		}

		if err := repo.SetStatus(ctx, reqs[0].ID, database.LeaveApproved); err != nil {
			t.Fatalf("Failed to approve: %v", err)
		}

		overlapping, err = repo.ApprovedOverlapping(ctx, user.ID, start.AddDate(0, 0, 2), start.AddDate(0, 0, 20))
		if err != nil {
			t.Fatalf("Failed to query overlapping: %v", err)
		}
		if len(overlapping) != 1 {
			t.Errorf("Expected 1 overlapping approved request, got %d", len(overlapping))
		}

		overlapping, _ = repo.ApprovedOverlapping(ctx, user.ID, end.AddDate(0, 0, 1), end.AddDate(0, 0, 5))
		if len(overlapping) != 0 {
			t.Errorf("Expected no overlap outside the interval, got %d", len(overlapping))
		}
	})
}

func TestSummaryRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSummaryRepository(pool)
	user := createTestUser(t, pool, "summary.user")

	t.Run("UpsertReplacesCounters", func(t *testing.T) {
		s := &database.MonthlySummary{
			UserID: user.ID, Month: 3, Year: 2026,
			TotalDays: 10, PresentDays: 6, AbsentDays: 1, LeaveDays: 0, HolidayDays: 3,
			Percentage: 85.71,
		}
		if err := repo.Upsert(ctx, s); err != nil {
			t.Fatalf("Failed to upsert summary: %v", err)
		}

		s.PresentDays = 7
		s.AbsentDays = 0
		s.Percentage = 100
		if err := repo.Upsert(ctx, s); err != nil {
			t.Fatalf("Failed to upsert again: %v", err)
		}

		got, err := repo.Get(ctx, user.ID, 3, 2026)
		if err != nil {
			t.Fatalf("Failed to get summary: %v", err)
		}
		if got.PresentDays != 7 || got.Percentage != 100 {
			t.Errorf("Expected replaced counters, got present=%d pct=%.2f", got.PresentDays, got.Percentage)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get(ctx, user.ID, 1, 2020)
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListForUser", func(t *testing.T) {
		older := &database.MonthlySummary{UserID: user.ID, Month: 2, Year: 2026, TotalDays: 28}
		if err := repo.Upsert(ctx, older); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}

		list, err := repo.ListForUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("Failed to list summaries: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("Expected 2 summaries, got %d", len(list))
		}
		if list[0].Month != 3 {
			t.Errorf("Expected newest first, got month %d", list[0].Month)
		}
	})
}
