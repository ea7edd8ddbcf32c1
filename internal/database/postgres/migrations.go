package postgres

import (
	"context"
	"fmt"
)

// FaceEmbeddingDim is the fixed dimension for face embeddings
// (512 for SFace and comparable models).
const FaceEmbeddingDim = 512

// Migrate creates the schema. Safe to run repeatedly.
func (p *Pool) Migrate(ctx context.Context) error {
	if _, err := p.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL PRIMARY KEY,
			username         VARCHAR(150) NOT NULL UNIQUE,
			email            VARCHAR(255) NOT NULL DEFAULT '',
			enrollment_no    VARCHAR(50) NOT NULL DEFAULT '',
			user_type        VARCHAR(20) NOT NULL DEFAULT 'student',
			approved         BOOLEAN NOT NULL DEFAULT FALSE,
			has_face_data    BOOLEAN NOT NULL DEFAULT FALSE,
			face_image_count INTEGER NOT NULL DEFAULT 0,
			created_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_enrollment_no_idx
			ON users(enrollment_no) WHERE enrollment_no <> ''`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS embeddings (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			image_ref   VARCHAR(500) NOT NULL,
			embedding   vector(%d) NOT NULL,
			model       VARCHAR(50) NOT NULL,
			dim         INTEGER NOT NULL DEFAULT %d,
			created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(user_id, image_ref)
		)`, FaceEmbeddingDim, FaceEmbeddingDim),
		`CREATE INDEX IF NOT EXISTS embeddings_user_id_idx ON embeddings(user_id)`,
		`CREATE TABLE IF NOT EXISTS attendance_days (
			user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date       DATE NOT NULL,
			status     VARCHAR(20) NOT NULL DEFAULT 'Absent',
			check_in   TIMESTAMP WITH TIME ZONE,
			check_out  TIMESTAMP WITH TIME ZONE,
			leave_type VARCHAR(20) NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS leave_requests (
			id         UUID PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			start_date DATE NOT NULL,
			end_date   DATE NOT NULL,
			leave_type VARCHAR(20) NOT NULL DEFAULT 'other',
			reason     TEXT NOT NULL DEFAULT '',
			status     VARCHAR(20) NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS leave_requests_user_id_idx ON leave_requests(user_id)`,
		`CREATE TABLE IF NOT EXISTS monthly_summaries (
			user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			month        INTEGER NOT NULL,
			year         INTEGER NOT NULL,
			total_days   INTEGER NOT NULL DEFAULT 0,
			present_days INTEGER NOT NULL DEFAULT 0,
			absent_days  INTEGER NOT NULL DEFAULT 0,
			leave_days   INTEGER NOT NULL DEFAULT 0,
			holiday_days INTEGER NOT NULL DEFAULT 0,
			percentage   DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, month, year)
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
