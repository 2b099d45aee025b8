package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/repository"
	service "github.com/cyrce/loyalty/internal/app"
	"github.com/cyrce/loyalty/internal/domain/catalog"
	"github.com/cyrce/loyalty/internal/domain/challenge"
	"github.com/cyrce/loyalty/internal/domain/cluster"
	"github.com/cyrce/loyalty/internal/domain/model"
	"github.com/cyrce/loyalty/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// testAssigner builds a three-cluster model where the one-hot slot decides
// the label: COLAS -> 0, AGUA -> 1, anything unseen -> 2.
func testAssigner(t *testing.T) cluster.Assigner {
	t.Helper()
	params := cluster.TransformParams{
		Version:    "test",
		Means:      make([]float64, 9),
		Stddevs:    []float64{1, 1, 1, 1, 1, 1, 1, 1, 1},
		Categories: []string{"AGUA", "COLAS"},
	}
	centers := [][]float64{
		append(make([]float64, 9), 0, 1), // COLAS
		append(make([]float64, 9), 1, 0), // AGUA
		make([]float64, 11),              // unseen
	}
	a, err := cluster.NewCentroidAssigner(params, cluster.Centroids{Version: "test", Centers: centers})
	if err != nil {
		t.Fatalf("build assigner: %v", err)
	}
	return a
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

type stubText struct {
	response string
	err      error
	calls    int
}

func (s *stubText) Generate(context.Context, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const primaryResponse = `{
	"title": "Sparkling Sprint",
	"description": "Sell 25 cans before the deadline",
	"numeric_goal": 25,
	"unit": "units",
	"target_product": "Coca Cola Kaizen Lata 350ml",
	"incentive": "120 points",
	"deadline": "2099-01-01",
	"tips": ["Chill the cans"]
}`

func validVector() model.FeatureVector {
	return model.FeatureVector{
		TicketAverage:     12.5,
		PurchaseFrequency: 8,
		Variability:       3.2,
		RecencyMonths:     1,
		ActiveMonths:      20,
		DistHospitalM:     1200,
		DistSchoolM:       500,
		DistGymM:          3000,
		DistOfficeM:       6000,
		DominantCategory:  "COLAS",
	}
}

func newMemoryStore(t *testing.T) repository.Store {
	t.Helper()
	s, err := repository.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func startedService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	base := []service.Option{
		service.WithStore(newMemoryStore(t)),
		service.WithAssigner(testAssigner(t)),
		service.WithCatalog(testCatalog(t)),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestCreateChallenge(t *testing.T) {
	Convey("Given a started service with a healthy text backend", t, func() {
		text := &stubText{response: primaryResponse}
		svc := startedService(t, service.WithTextGenerator(text))
		ctx := context.Background()

		Convey("When creating a challenge for a valid profile", func() {
			stored, strategy, err := svc.CreateChallenge(ctx, validVector())

			Convey("Then the primary strategy wins and the record persists", func() {
				So(err, ShouldBeNil)
				So(strategy, ShouldEqual, challenge.StrategyPrimary)
				So(stored.ID, ShouldNotBeEmpty)
				So(stored.ClusterID, ShouldEqual, 0)
				So(stored.Title, ShouldEqual, "Sparkling Sprint")
				So(text.calls, ShouldEqual, 1)

				got, err := svc.ChallengeStatus(ctx, stored.ID)
				So(err, ShouldBeNil)
				So(got.Title, ShouldEqual, "Sparkling Sprint")
			})
		})

		Convey("When the profile fails validation", func() {
			v := validVector()
			v.TicketAverage = 0
			_, _, err := svc.CreateChallenge(ctx, v)

			Convey("Then the request is rejected before assignment", func() {
				So(err, ShouldWrap, service.ErrValidation)
				So(text.calls, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a started service whose text backend is down", t, func() {
		svc := startedService(t, service.WithTextGenerator(&stubText{err: errors.New("down")}))

		Convey("When creating a challenge", func() {
			stored, strategy, err := svc.CreateChallenge(context.Background(), validVector())

			Convey("Then the fallback still produces a valid challenge", func() {
				So(err, ShouldBeNil)
				So(strategy, ShouldEqual, challenge.StrategyFallback)
				So(stored.Validate(), ShouldBeNil)
				So(stored.NumericGoal, ShouldEqual, challenge.FallbackGoal(0))
			})
		})
	})

	Convey("Given a started service with no text backend at all", t, func() {
		svc := startedService(t)

		Convey("Then creation works fully offline", func() {
			stored, strategy, err := svc.CreateChallenge(context.Background(), validVector())
			So(err, ShouldBeNil)
			So(strategy, ShouldEqual, challenge.StrategyFallback)
			So(stored.Validate(), ShouldBeNil)
		})
	})
}

func TestClusterRouting(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("Then the dominant category routes to the expected segment", func() {
			v := validVector()
			stored, _, err := svc.CreateChallenge(ctx, v)
			So(err, ShouldBeNil)
			So(stored.ClusterID, ShouldEqual, 0)

			v.DominantCategory = "AGUA"
			stored, _, err = svc.CreateChallenge(ctx, v)
			So(err, ShouldBeNil)
			So(stored.ClusterID, ShouldEqual, 1)

			v.DominantCategory = "CERVEZA"
			stored, _, err = svc.CreateChallenge(ctx, v)
			So(err, ShouldBeNil)
			So(stored.ClusterID, ShouldEqual, 2)
		})
	})
}

func TestApplyProgress(t *testing.T) {
	Convey("Given a service with a stored challenge", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		stored, _, err := svc.CreateChallenge(ctx, validVector())
		So(err, ShouldBeNil)

		Convey("When progress meets the goal", func() {
			completed, err := svc.ApplyProgress(ctx, stored.ID,
				map[string]any{"units_sold": stored.NumericGoal}, time.Now())

			Convey("Then the challenge completes", func() {
				So(err, ShouldBeNil)
				So(completed, ShouldBeTrue)

				got, err := svc.ChallengeStatus(ctx, stored.ID)
				So(err, ShouldBeNil)
				So(got.Completed, ShouldBeTrue)
			})
		})

		Convey("When the payload is empty", func() {
			_, err := svc.ApplyProgress(ctx, stored.ID, nil, time.Now())
			So(err, ShouldWrap, service.ErrValidation)
		})

		Convey("When the id is unknown", func() {
			_, err := svc.ApplyProgress(ctx, "missing", map[string]any{"n": 1.0}, time.Now())
			So(err, ShouldWrap, repository.ErrNotFound)
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("When challenges exist", func() {
			_, _, err := svc.CreateChallenge(ctx, validVector())
			So(err, ShouldBeNil)

			stats := svc.GetStats()

			Convey("Then stats expose the service state", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["totalChallenges"], ShouldEqual, 1)
				So(stats["generativeEnabled"], ShouldBeFalse)
			})
		})
	})
}

func TestStartFailsWithoutModel(t *testing.T) {
	Convey("Given a service pointed at missing artifacts", t, func() {
		svc := service.New(
			service.WithDBPath(":memory:"),
			service.WithModelArtifacts("/nonexistent/transform.json", "/nonexistent/centroids.json"),
		)

		Convey("Then Start refuses to come up", func() {
			err := svc.Start(context.Background())
			So(err, ShouldWrap, cluster.ErrModelUnavailable)
		})
	})
}
