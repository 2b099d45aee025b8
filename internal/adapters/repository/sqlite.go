package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cyrce/loyalty/internal/domain/model"
	"github.com/cyrce/loyalty/pkg/metrics"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS challenges (
	id         TEXT PRIMARY KEY,
	cluster_id INTEGER NOT NULL,
	body       TEXT NOT NULL,
	events     TEXT NOT NULL DEFAULT '[]',
	completed  INTEGER NOT NULL DEFAULT 0,
	revision   INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_challenges_cluster ON challenges(cluster_id);
CREATE INDEX IF NOT EXISTS idx_challenges_completed ON challenges(completed);
`

// SQLiteStore implements Store on a SQLite database. A single connection
// serializes writers, which is what the per-challenge read-modify-write
// contract requires.
type SQLiteStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithClock overrides the creation-time source.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the challenge id source.
func WithIDGenerator(gen func() string) SQLiteOption {
	return func(s *SQLiteStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewSQLiteStore opens (or creates) the challenge database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open challenge db: %w", err)
	}
	// One connection keeps in-memory databases coherent and gives SQLite a
	// single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure challenge db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init challenge schema: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create persists the challenge and returns it with id, creation time and
// initial revision filled in.
func (s *SQLiteStore) Create(ctx context.Context, c model.Challenge) (Stored, error) {
	start := time.Now()

	c.ID = s.newID()
	c.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	c.Completed = false
	events := c.ProgressEvents
	if events == nil {
		events = []model.ProgressEvent{}
	}
	c.ProgressEvents = nil

	body, err := json.Marshal(c)
	if err != nil {
		return Stored{}, fmt.Errorf("encode challenge: %w", err)
	}
	rawEvents, err := json.Marshal(events)
	if err != nil {
		return Stored{}, fmt.Errorf("encode progress events: %w", err)
	}

	createdAt := c.CreatedAt.Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO challenges (id, cluster_id, body, events, completed, revision, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 1, ?, ?)`,
		c.ID, c.ClusterID, string(body), string(rawEvents), createdAt, createdAt,
	)
	if err != nil {
		return Stored{}, fmt.Errorf("insert challenge: %w", err)
	}

	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))

	c.ProgressEvents = events
	return Stored{Challenge: c, Revision: 1}, nil
}

// Get loads one challenge by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Stored, error) {
	start := time.Now()

	var (
		body      string
		rawEvents string
		completed int
		revision  int64
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, events, completed, revision, created_at FROM challenges WHERE id = ?`, id,
	).Scan(&body, &rawEvents, &completed, &revision, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Stored{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Stored{}, fmt.Errorf("query challenge: %w", err)
	}

	var c model.Challenge
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return Stored{}, fmt.Errorf("decode challenge %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(rawEvents), &c.ProgressEvents); err != nil {
		return Stored{}, fmt.Errorf("decode progress events %s: %w", id, err)
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Stored{}, fmt.Errorf("decode created_at %s: %w", id, err)
	}
	c.ID = id
	c.Completed = completed != 0

	metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	return Stored{Challenge: c, Revision: revision}, nil
}

// Update conditionally replaces progress state. The revision predicate makes
// the whole read-modify-write cycle a single serialized unit per challenge.
func (s *SQLiteStore) Update(ctx context.Context, id string, revision int64, events []model.ProgressEvent, completed bool, updatedAt time.Time) error {
	start := time.Now()

	rawEvents, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode progress events: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE challenges SET events = ?, completed = ?, revision = revision + 1, updated_at = ?
		 WHERE id = ? AND revision = ?`,
		string(rawEvents), boolToInt(completed), updatedAt.UTC().Format(time.RFC3339Nano), id, revision,
	)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if n == 0 {
		// Distinguish a vanished row from a lost revision race.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM challenges WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("update challenge: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %s", ErrConflict, id)
	}

	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

// Count returns the number of stored challenges.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM challenges`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
