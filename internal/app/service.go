// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/repository"
	"github.com/cyrce/loyalty/internal/domain/catalog"
	"github.com/cyrce/loyalty/internal/domain/challenge"
	"github.com/cyrce/loyalty/internal/domain/cluster"
	"github.com/cyrce/loyalty/internal/domain/model"
	"github.com/cyrce/loyalty/internal/domain/progress"
	"github.com/cyrce/loyalty/pkg/logger"
	"github.com/cyrce/loyalty/pkg/metrics"
)

// ErrValidation marks rejected input: the feature vector or progress payload
// failed its invariants before touching any downstream component.
var ErrValidation = errors.New("validation failure")

// Service implements the API dependencies for the challenge system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	assigner  cluster.Assigner
	catalog   *catalog.Catalog
	text      challenge.TextGenerator
	generator *challenge.Generator
	tracker   *progress.Tracker

	// Configuration
	dbPath        string
	transformPath string
	centroidsPath string
	now           func() time.Time

	// State
	started      bool
	modelVersion string

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects a challenge store, bypassing the SQLite default.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithAssigner injects a cluster assigner, bypassing artifact loading.
func WithAssigner(a cluster.Assigner) Option {
	return func(s *Service) {
		if a != nil {
			s.assigner = a
		}
	}
}

// WithCatalog injects a cluster catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithTextGenerator injects the generative text service. Leaving it unset
// means every challenge takes the deterministic fallback path.
func WithTextGenerator(t challenge.TextGenerator) Option {
	return func(s *Service) {
		if t != nil {
			s.text = t
		}
	}
}

// WithClock overrides the time source for deadlines and event stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDBPath sets the SQLite database path used when no store is injected.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithModelArtifacts sets the frozen artifact paths used when no assigner is
// injected.
func WithModelArtifacts(transformPath, centroidsPath string) Option {
	return func(s *Service) {
		if transformPath != "" {
			s.transformPath = transformPath
		}
		if centroidsPath != "" {
			s.centroidsPath = centroidsPath
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:        "challenges.db",
		transformPath: "artifacts/transform.json",
		centroidsPath: "artifacts/centroids.json",
		now:           time.Now,
		logger:        nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. A missing or
// malformed frozen model is fatal here: the service never serves requests it
// cannot segment.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting challenge service...")

	if s.assigner == nil {
		params, centroids, err := cluster.LoadArtifacts(s.transformPath, s.centroidsPath)
		if err != nil {
			return err
		}
		assigner, err := cluster.NewCentroidAssigner(params, centroids)
		if err != nil {
			return err
		}
		s.assigner = assigner
		s.modelVersion = assigner.ModelVersion()
		s.logger.Info(ctx, "frozen model loaded",
			logger.String("version", s.modelVersion),
			logger.Int("clusters", assigner.K()),
		)
	}

	if s.catalog == nil {
		cat, err := catalog.New()
		if err != nil {
			return err
		}
		s.catalog = cat
	}

	if s.store == nil {
		store, err := repository.NewSQLiteStore(ctx, s.dbPath)
		if err != nil {
			return err
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	s.generator = challenge.NewGenerator(s.text, challenge.WithClock(s.now))
	s.tracker = progress.NewTracker(s.store, progress.WithClock(s.now))

	s.started = true
	s.logger.Info(ctx, "challenge service started",
		logger.String("generative", fmt.Sprintf("%t", s.text != nil)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping challenge service...")

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "challenge service stopped")
}

// CreateChallenge runs the full pipeline for one customer profile: validate,
// assign a segment, generate a challenge and persist it. Generative outages
// never fail the call; the fallback strategy absorbs them.
func (s *Service) CreateChallenge(ctx context.Context, v model.FeatureVector) (repository.Stored, challenge.Strategy, error) {
	if err := v.Validate(); err != nil {
		return repository.Stored{}, "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	clusterID, err := s.assigner.Assign(v)
	if err != nil {
		return repository.Stored{}, "", err
	}
	metrics.RecordClusterAssignment(clusterID)

	meta := s.catalog.Lookup(clusterID)

	start := time.Now()
	c, strategy := s.generator.Generate(ctx, clusterID, meta, v)
	metrics.RecordGenerationLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordChallengeCreated(string(strategy))
	if strategy == challenge.StrategyFallback {
		metrics.RecordFallbackGeneration()
		if s.text != nil {
			metrics.RecordGenerationError()
		}
	}

	stored, err := s.store.Create(ctx, c)
	if err != nil {
		return repository.Stored{}, strategy, err
	}

	s.logger.Info(ctx, "challenge created",
		logger.String("id", stored.ID),
		logger.Int("cluster", clusterID),
		logger.String("strategy", string(strategy)),
	)
	return stored, strategy, nil
}

// ApplyProgress records one progress event and returns the resulting
// completion state.
func (s *Service) ApplyProgress(ctx context.Context, id string, payload map[string]any, ts time.Time) (bool, error) {
	if len(payload) == 0 {
		return false, fmt.Errorf("%w: progress payload must not be empty", ErrValidation)
	}

	completed, err := s.tracker.Apply(ctx, id, payload, ts)
	if errors.Is(err, repository.ErrConflict) {
		metrics.IncProgressConflicts()
	}
	if err != nil {
		return false, err
	}
	return completed, nil
}

// ChallengeStatus returns the stored snapshot for one challenge.
func (s *Service) ChallengeStatus(ctx context.Context, id string) (repository.Stored, error) {
	return s.tracker.Status(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"modelVersion":      s.modelVersion,
		"generativeEnabled": s.text != nil,
	}

	if s.started {
		total := s.store.Count(context.Background())
		stats["totalChallenges"] = total
		metrics.UpdateTotalChallenges(total)
	}

	return stats
}
