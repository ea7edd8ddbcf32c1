package roster

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/attendease/internal/facematch"
)

// LegacyDirectory reads people out of the old campus directory, a MySQL
// database the attendance system replaces but still syncs from.
type LegacyDirectory struct {
	db *sql.DB
}

// OpenLegacy connects to the legacy directory using a MySQL DSN.
func OpenLegacy(dsn string) (*LegacyDirectory, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open legacy directory: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not reach legacy directory: %w", err)
	}
	return &LegacyDirectory{db: db}, nil
}

// Entries reads every active person from the directory. Usernames come
// back normalized the same way the CSV importer normalizes them, so both
// paths land on the same user rows.
func (l *LegacyDirectory) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT full_name, enrollment_no, email, role
		FROM directory_members
		WHERE active = 1
		ORDER BY enrollment_no
	`)
	if err != nil {
		return nil, fmt.Errorf("could not query legacy directory: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var fullName, enrollment, email, role string
		if err := rows.Scan(&fullName, &enrollment, &email, &role); err != nil {
			return nil, fmt.Errorf("could not scan legacy row: %w", err)
		}
		userType := "student"
		if role == "staff" || role == "faculty" {
			userType = "faculty"
		}
		entries = append(entries, Entry{
			Username:     facematch.NormalizeUsername(fullName),
			EnrollmentNo: enrollment,
			Email:        email,
			UserType:     userType,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read legacy directory: %w", err)
	}
	return entries, nil
}

// Close releases the database connection.
func (l *LegacyDirectory) Close() error {
	return l.db.Close()
}
