package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyrce/loyalty/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// Run executes the complete smoke run against a live service.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting loyalty smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("challenges", config.NumChallenges),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate customer profiles
	profiles := generateProfiles(ctx, config, stats)

	// Step 3: Create challenges concurrently
	challenges, err := createChallenges(ctx, config, profiles, stats)
	if err != nil {
		return fmt.Errorf("challenge creation failed: %w", err)
	}

	// Step 4: Drive each challenge to completion
	if err := driveProgress(ctx, config, challenges, stats); err != nil {
		return fmt.Errorf("progress submission failed: %w", err)
	}

	// Step 5: Verify completion and status invariants
	if err := verifyResults(ctx, config, challenges, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save generated profiles for replay
	if err := saveProfilesToFile(ctx, config, profiles); err != nil {
		logger.Get().Warn(ctx, "failed to save profiles to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "smoke run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveProfilesToFile saves the generated profiles to a JSON file.
func saveProfilesToFile(ctx context.Context, config *Config, profiles []Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no profiles to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_profiles_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "profiles saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, challengesPerSecond float64

	if stats.ProfilesGenerated > 0 {
		successRate = float64(stats.ChallengesCreated) / float64(stats.ProfilesGenerated) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		challengesPerSecond = float64(stats.ChallengesCreated) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("profilesGenerated", stats.ProfilesGenerated),
		logger.Int("challengesCreated", stats.ChallengesCreated),
		logger.Int("fallbackChallenges", stats.FallbackChallenges),
		logger.Int("createFailures", stats.CreateFailures),
		logger.Int("progressSubmitted", stats.ProgressSubmitted),
		logger.Int("challengesCompleted", stats.ChallengesCompleted),
		logger.Int("progressFailures", stats.ProgressFailures),
		logger.Int("verifyFailures", stats.VerifyFailures),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("challengesPerSecond", challengesPerSecond))
}
