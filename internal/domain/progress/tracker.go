// Package progress implements the challenge progress state machine on top of
// the store contract.
package progress

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/repository"
	"github.com/cyrce/loyalty/internal/domain/model"
	"github.com/cyrce/loyalty/pkg/metrics"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used when events carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker appends progress events to challenges and flips completion when a
// reported value reaches the numeric goal.
type Tracker struct {
	store repository.Store
	now   func() time.Time
}

// NewTracker constructs a Tracker over the given store.
func NewTracker(store repository.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply records one progress event against the challenge and returns the
// resulting completion state. Completion is monotonic: events keep appending
// after the goal is reached, but a completed challenge never reopens.
// Returns repository.ErrNotFound for unknown ids and repository.ErrConflict
// when a concurrent update wins the race.
func (t *Tracker) Apply(ctx context.Context, id string, payload map[string]any, ts time.Time) (bool, error) {
	stored, err := t.store.Get(ctx, id)
	if err != nil {
		return false, err
	}

	if ts.IsZero() {
		ts = t.now()
	}
	event := model.ProgressEvent{Payload: payload, Timestamp: ts.UTC()}
	events := append(stored.ProgressEvents, event)

	completed := stored.Completed
	if !completed && reachesGoal(payload, stored.NumericGoal) {
		completed = true
	}

	if err := t.store.Update(ctx, id, stored.Revision, events, completed, ts); err != nil {
		return false, err
	}

	metrics.IncProgressEvents()
	if completed && !stored.Completed {
		metrics.IncChallengesCompleted()
	}
	return completed, nil
}

// Status returns the stored snapshot for one challenge.
// Returns repository.ErrNotFound for unknown ids.
func (t *Tracker) Status(ctx context.Context, id string) (repository.Stored, error) {
	return t.store.Get(ctx, id)
}

// reachesGoal reports whether any numeric value in the payload meets or
// exceeds the goal. Non-numeric values are ignored; the payload schema is
// open, so every numeric entry counts.
func reachesGoal(payload map[string]any, goal float64) bool {
	for _, v := range payload {
		n, ok := numericValue(v)
		if ok && n >= goal {
			return true
		}
	}
	return false
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
