// Package roster imports users from CSV files and the legacy campus
// directory.
package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/facematch"
)

// Entry is one person parsed from a roster source.
type Entry struct {
	Username     string
	EnrollmentNo string
	Email        string
	UserType     string
}

// ImportResult reports what an import run did.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

var csvHeader = []string{"username", "enrollment_no", "email", "user_type"}

// ParseRoster reads a roster CSV. The header row is required and columns
// must appear in the documented order. Rows with an empty username are
// skipped, not an error.
func ParseRoster(r io.Reader) ([]Entry, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("could not read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, 0, err
	}

	var entries []Entry
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("could not read csv row: %w", err)
		}
		entry := Entry{
			Username:     facematch.NormalizeUsername(record[0]),
			EnrollmentNo: strings.TrimSpace(record[1]),
			Email:        strings.TrimSpace(record[2]),
			UserType:     strings.ToLower(strings.TrimSpace(record[3])),
		}
		if entry.Username == "" {
			skipped++
			continue
		}
		if entry.UserType != "faculty" {
			entry.UserType = "student"
		}
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

func checkHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("csv header has %d columns, want %d", len(header), len(csvHeader))
	}
	for i, want := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != want {
			return fmt.Errorf("csv column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

// Import upserts entries into the user store. Users created by an import
// start out unapproved.
func Import(ctx context.Context, store database.UserStore, entries []Entry) (*ImportResult, error) {
	result := &ImportResult{}
	for _, e := range entries {
		u := &database.User{
			Username:     e.Username,
			Email:        e.Email,
			EnrollmentNo: e.EnrollmentNo,
			UserType:     e.UserType,
		}
		created, err := store.UpsertByEnrollment(ctx, u)
		if err != nil {
			return result, fmt.Errorf("could not import user %q: %w", e.Username, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}
