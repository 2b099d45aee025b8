package repository

import "errors"

// Sentinel kinds for challenge store errors.
var (
	// ErrNotFound means the challenge id is unknown to the store.
	ErrNotFound = errors.New("challenge not found")

	// ErrConflict means a conditional update matched the id but not the
	// revision: a concurrent mutation won the race. Surfaced to callers so
	// retry policy stays with them.
	ErrConflict = errors.New("challenge update conflict")
)
