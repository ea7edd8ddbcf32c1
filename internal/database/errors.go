package database

import "errors"

var (
	// ErrInvalidVector is returned when an embedding's dimension does not
	// match the store's configured dimension.
	ErrInvalidVector = errors.New("embedding dimension mismatch")

	// ErrConflict is returned when two concurrent state transitions collide
	// on the same (user, date) row and a retry did not resolve it.
	ErrConflict = errors.New("concurrent attendance update conflict")

	// ErrNotFound is returned by lookups for rows that do not exist.
	ErrNotFound = errors.New("not found")
)
