package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/repository"
	"github.com/cyrce/loyalty/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestStore(t *testing.T, opts ...repository.SQLiteOption) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.NewSQLiteStore(context.Background(), ":memory:", opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleChallenge() model.Challenge {
	return model.Challenge{
		ClusterID:     1,
		Title:         "Hydration Leader!",
		Description:   "Sell 20 units of Dasani Maracuya",
		NumericGoal:   20,
		Unit:          "units",
		TargetProduct: "Dasani Maracuya 600ml",
		Incentive:     "100 points",
		Deadline:      time.Date(2025, 4, 9, 12, 0, 0, 0, time.UTC),
		Tips:          []string{"Stock the cooler", "Suggest it at checkout"},
	}
}

func TestSQLiteCreateAndGet(t *testing.T) {
	Convey("Given an empty store", t, func() {
		at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
		store := newTestStore(t,
			repository.WithClock(func() time.Time { return at }),
			repository.WithIDGenerator(func() string { return "ch-001" }),
		)
		ctx := context.Background()

		Convey("When a challenge is created", func() {
			stored, err := store.Create(ctx, sampleChallenge())
			So(err, ShouldBeNil)

			Convey("Then the store assigns identity and bookkeeping", func() {
				So(stored.ID, ShouldEqual, "ch-001")
				So(stored.Revision, ShouldEqual, 1)
				So(stored.CreatedAt, ShouldEqual, at)
				So(stored.Completed, ShouldBeFalse)
				So(stored.ProgressEvents, ShouldBeEmpty)
			})

			Convey("Then a fresh read round-trips the record", func() {
				got, err := store.Get(ctx, "ch-001")
				So(err, ShouldBeNil)
				So(got.Title, ShouldEqual, "Hydration Leader!")
				So(got.NumericGoal, ShouldEqual, 20)
				So(got.Tips, ShouldResemble, []string{"Stock the cooler", "Suggest it at checkout"})
				So(got.Deadline, ShouldEqual, sampleChallenge().Deadline)
				So(got.Revision, ShouldEqual, 1)
			})

			Convey("Then the count reflects it", func() {
				So(store.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When reading an unknown id", func() {
			_, err := store.Get(ctx, "missing")
			So(err, ShouldWrap, repository.ErrNotFound)
		})
	})
}

func TestSQLiteUpdate(t *testing.T) {
	Convey("Given a stored challenge", t, func() {
		store := newTestStore(t)
		ctx := context.Background()
		stored, err := store.Create(ctx, sampleChallenge())
		So(err, ShouldBeNil)

		event := model.ProgressEvent{
			Payload:   map[string]any{"units_sold": 21.0},
			Timestamp: time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
		}

		Convey("When updating with the current revision", func() {
			err := store.Update(ctx, stored.ID, stored.Revision,
				[]model.ProgressEvent{event}, true, event.Timestamp)
			So(err, ShouldBeNil)

			Convey("Then the revision advances and state persists", func() {
				got, err := store.Get(ctx, stored.ID)
				So(err, ShouldBeNil)
				So(got.Revision, ShouldEqual, 2)
				So(got.Completed, ShouldBeTrue)
				So(len(got.ProgressEvents), ShouldEqual, 1)
				So(got.ProgressEvents[0].Payload["units_sold"], ShouldEqual, 21.0)
			})

			Convey("Then replaying the stale revision conflicts", func() {
				err := store.Update(ctx, stored.ID, stored.Revision,
					[]model.ProgressEvent{event}, true, event.Timestamp)
				So(err, ShouldWrap, repository.ErrConflict)
			})
		})

		Convey("When updating an unknown id", func() {
			err := store.Update(ctx, "missing", 1, nil, false, time.Now())
			So(err, ShouldWrap, repository.ErrNotFound)
		})
	})
}

func TestSQLitePersistence(t *testing.T) {
	Convey("Given a file-backed store", t, func() {
		path := t.TempDir() + "/challenges.db"
		ctx := context.Background()

		first, err := repository.NewSQLiteStore(ctx, path,
			repository.WithIDGenerator(func() string { return "ch-persist" }))
		So(err, ShouldBeNil)
		_, err = first.Create(ctx, sampleChallenge())
		So(err, ShouldBeNil)
		So(first.Close(), ShouldBeNil)

		Convey("When reopened", func() {
			second, err := repository.NewSQLiteStore(ctx, path)
			So(err, ShouldBeNil)
			defer second.Close()

			Convey("Then challenges survive the restart", func() {
				got, err := second.Get(ctx, "ch-persist")
				So(err, ShouldBeNil)
				So(got.Title, ShouldEqual, "Hydration Leader!")
				So(second.Count(ctx), ShouldEqual, 1)
			})
		})
	})
}
