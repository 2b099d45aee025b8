// Package repository defines the challenge store contract and its SQLite
// implementation.
package repository

import (
	"context"
	"time"

	"github.com/cyrce/loyalty/internal/domain/model"
)

// Stored is a challenge as the store sees it: the domain record plus the
// bookkeeping needed for conditional updates.
type Stored struct {
	model.Challenge

	// Revision increments on every successful update and guards the
	// read-modify-write cycle of progress tracking.
	Revision int64
}

// Store provides durable read/write access to challenges. The store owns
// every challenge after creation; the core only holds transient copies.
type Store interface {
	// Create persists a new challenge, assigning its id and creation time.
	Create(ctx context.Context, c model.Challenge) (Stored, error)

	// Get returns the challenge for id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (Stored, error)

	// Update replaces the progress state of a challenge if and only if its
	// revision still matches. Returns ErrNotFound for unknown ids and
	// ErrConflict when a concurrent update won the race.
	Update(ctx context.Context, id string, revision int64, events []model.ProgressEvent, completed bool, updatedAt time.Time) error

	// Count returns the number of stored challenges.
	Count(ctx context.Context) int

	// Close releases the underlying resources.
	Close() error
}
