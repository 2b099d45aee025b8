package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/repository"
	service "github.com/cyrce/loyalty/internal/app"
	"github.com/cyrce/loyalty/internal/domain/challenge"
	. "github.com/smartystreets/goconvey/convey"
)

// Integration coverage: the service boots from real artifact files and a
// file-backed store, then runs the whole pipeline end to end.

func artifactPath(name string) string {
	return filepath.Join("..", "domain", "cluster", "testdata", name)
}

func TestServiceLifecycleIntegration(t *testing.T) {
	Convey("Given a service wired from artifact files and a file-backed store", t, func() {
		dbPath := filepath.Join(t.TempDir(), "challenges.db")
		svc := service.New(
			service.WithDBPath(dbPath),
			service.WithModelArtifacts(artifactPath("transform.json"), artifactPath("centroids.json")),
		)
		ctx := context.Background()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When running the whole pipeline for one customer", func() {
			stored, strategy, err := svc.CreateChallenge(ctx, validVector())
			So(err, ShouldBeNil)
			So(strategy, ShouldEqual, challenge.StrategyFallback)
			So(stored.Validate(), ShouldBeNil)
			So(stored.ClusterID, ShouldEqual, 0)

			Convey("Then progress drives the challenge to completion", func() {
				completed, err := svc.ApplyProgress(ctx, stored.ID,
					map[string]any{"units_sold": 5.0}, time.Now())
				So(err, ShouldBeNil)
				So(completed, ShouldBeFalse)

				completed, err = svc.ApplyProgress(ctx, stored.ID,
					map[string]any{"units_sold": stored.NumericGoal}, time.Now())
				So(err, ShouldBeNil)
				So(completed, ShouldBeTrue)

				got, err := svc.ChallengeStatus(ctx, stored.ID)
				So(err, ShouldBeNil)
				So(got.Completed, ShouldBeTrue)
				So(len(got.ProgressEvents), ShouldEqual, 2)
			})

			Convey("Then the deadline sits exactly thirty days after creation", func() {
				So(stored.Deadline.Sub(stored.CreatedAt), ShouldAlmostEqual,
					30*24*time.Hour, float64(time.Minute))
			})

			Convey("Then stats count the stored challenge", func() {
				stats := svc.GetStats()
				So(stats["totalChallenges"], ShouldEqual, 1)
				So(stats["modelVersion"], ShouldEqual, "2024-06-01")
			})
		})

		Convey("When creating challenges concurrently", func() {
			const n = 16
			type result struct {
				id  string
				err error
			}
			results := make(chan result, n)

			for i := 0; i < n; i++ {
				go func() {
					stored, _, err := svc.CreateChallenge(ctx, validVector())
					results <- result{id: stored.ID, err: err}
				}()
			}

			seen := make(map[string]bool, n)
			for i := 0; i < n; i++ {
				r := <-results
				So(r.err, ShouldBeNil)
				seen[r.id] = true
			}

			Convey("Then every challenge gets a distinct id", func() {
				So(len(seen), ShouldEqual, n)
			})
		})

		Convey("When two writers race on the same challenge revision", func() {
			stored, _, err := svc.CreateChallenge(ctx, validVector())
			So(err, ShouldBeNil)

			// Drive the conflict at the store layer where the revision
			// predicate lives.
			firstErr := applyAtRevision(ctx, t, dbPath, stored.ID, stored.Revision)
			secondErr := applyAtRevision(ctx, t, dbPath, stored.ID, stored.Revision)

			Convey("Then exactly one writer loses with a conflict", func() {
				So(firstErr, ShouldBeNil)
				So(secondErr, ShouldWrap, repository.ErrConflict)
			})
		})
	})
}

func applyAtRevision(ctx context.Context, t *testing.T, dbPath, id string, revision int64) error {
	t.Helper()
	store, err := repository.NewSQLiteStore(ctx, dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	return store.Update(ctx, id, revision, nil, false, time.Now())
}
