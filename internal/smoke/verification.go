package smoke

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cyrce/loyalty/pkg/logger"
	"github.com/google/uuid"
)

// verifyResults reads back completed challenges and checks the service's
// invariants: completion is permanent, events are retained in order, and
// unknown challenges return 404.
func verifyResults(ctx context.Context, config *Config, challenges []Created, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results", logger.Int("challenges", len(challenges)))

	if len(challenges) == 0 {
		return fmt.Errorf("no challenges to verify")
	}

	client := newHTTPClient(config.Timeout)
	var failures int

	sample := challenges
	if len(sample) > 25 {
		sample = sample[:25]
	}

	for _, c := range sample {
		status, err := fetchStatus(ctx, client, config.BaseURL, c.ChallengeID)
		if err != nil {
			failures++
			logger.Get().Warn(ctx, "status read failed",
				logger.String("challengeID", c.ChallengeID), logger.Error(err))
			continue
		}

		if !status.Challenge.Completed {
			failures++
			logger.Get().Warn(ctx, "challenge not completed after goal event",
				logger.String("challengeID", c.ChallengeID))
			continue
		}
		if len(status.Challenge.ProgressEvents) < 2 {
			failures++
			logger.Get().Warn(ctx, "progress events missing",
				logger.String("challengeID", c.ChallengeID),
				logger.Int("events", len(status.Challenge.ProgressEvents)))
			continue
		}

		// Completion must survive a further event.
		if _, err := submitProgress(ctx, client, config.BaseURL+"/challenge/progress", c.ChallengeID, 0); err != nil {
			failures++
			continue
		}
		after, err := fetchStatus(ctx, client, config.BaseURL, c.ChallengeID)
		if err != nil || !after.Challenge.Completed {
			failures++
			logger.Get().Warn(ctx, "completion did not survive extra event",
				logger.String("challengeID", c.ChallengeID))
		}
	}

	// Unknown ids must 404.
	resp, err := client.Get(ctx, config.BaseURL+"/challenge/"+uuid.NewString())
	if err != nil {
		failures++
	} else {
		_, _ = readResponseBody(resp)
		if resp.StatusCode != StatusNotFound {
			failures++
			logger.Get().Warn(ctx, "unknown challenge did not return 404",
				logger.Int("status", resp.StatusCode))
		}
	}

	stats.VerifyFailures = failures
	if failures > 0 {
		return fmt.Errorf("%d verification failures", failures)
	}

	logger.Get().Info(ctx, "result verification completed")
	return nil
}

// fetchStatus reads one challenge snapshot.
func fetchStatus(ctx context.Context, client *HTTPClient, baseURL, challengeID string) (StatusResponse, error) {
	resp, err := client.Get(ctx, baseURL+"/challenge/"+challengeID)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("get failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("read failed: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return StatusResponse{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var sr StatusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return StatusResponse{}, fmt.Errorf("decode failed: %w", err)
	}
	return sr, nil
}
