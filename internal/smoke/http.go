package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyrce/loyalty/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// createChallenges submits profiles concurrently using a worker pool and
// returns the created challenges.
func createChallenges(ctx context.Context, config *Config, profiles []Profile, stats *Stats) ([]Created, error) {
	logger.Get().Info(ctx, "creating challenges",
		logger.Int("profiles", len(profiles)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/store"

	var (
		created  int64
		fallback int64
		failed   int64
	)

	profileChan := make(chan Profile, config.Workers*WorkerChannelMultiplier)
	resultChan := make(chan Created, len(profiles))
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for profile := range profileChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				c, err := createSingleChallenge(ctx, client, url, profile)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "challenge creation failed", logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&created, 1)
				if c.Strategy == "fallback" {
					atomic.AddInt64(&fallback, 1)
				}
				resultChan <- c
			}
		}()
	}

	go func() {
		defer close(profileChan)
		for _, profile := range profiles {
			select {
			case <-ctx.Done():
				return
			case profileChan <- profile:
			}
		}
	}()

	wg.Wait()
	close(resultChan)

	results := make([]Created, 0, len(profiles))
	for c := range resultChan {
		results = append(results, c)
	}

	stats.ChallengesCreated = int(atomic.LoadInt64(&created))
	stats.FallbackChallenges = int(atomic.LoadInt64(&fallback))
	stats.CreateFailures = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "challenge creation completed",
		logger.Int("created", stats.ChallengesCreated),
		logger.Int("fallback", stats.FallbackChallenges),
		logger.Int("failed", stats.CreateFailures))

	if stats.ChallengesCreated == 0 {
		return nil, fmt.Errorf("no challenges created out of %d profiles", len(profiles))
	}
	return results, nil
}

// createSingleChallenge submits one profile and parses the reply.
func createSingleChallenge(ctx context.Context, client *HTTPClient, url string, profile Profile) (Created, error) {
	resp, err := client.Post(ctx, url, profile)
	if err != nil {
		return Created{}, fmt.Errorf("post failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Created{}, fmt.Errorf("read failed: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return Created{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var cr CreateResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return Created{}, fmt.Errorf("decode failed: %w", err)
	}
	if !cr.Success || cr.ChallengeID == "" {
		return Created{}, fmt.Errorf("malformed creation reply: %s", string(body))
	}

	return Created{
		Profile:     profile,
		ChallengeID: cr.ChallengeID,
		Strategy:    cr.Strategy,
		NumericGoal: cr.Challenge.NumericGoal,
		ClusterID:   cr.Challenge.ClusterID,
	}, nil
}

// driveProgress pushes each challenge to completion with two events: one
// below the goal and one at the goal.
func driveProgress(ctx context.Context, config *Config, challenges []Created, stats *Stats) error {
	logger.Get().Info(ctx, "driving progress events", logger.Int("challenges", len(challenges)))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/challenge/progress"

	var (
		submitted int64
		completed int64
		failed    int64
	)

	challengeChan := make(chan Created, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range challengeChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				// Partial event must not complete the challenge.
				partial, err := submitProgress(ctx, client, url, c.ChallengeID, c.NumericGoal/2)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&submitted, 1)
				if partial.Completed {
					atomic.AddInt64(&failed, 1)
					logger.Get().Warn(ctx, "challenge completed below goal",
						logger.String("challengeID", c.ChallengeID))
					continue
				}

				// Goal-reaching event completes it.
				final, err := submitProgress(ctx, client, url, c.ChallengeID, c.NumericGoal)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&submitted, 1)
				if final.Completed {
					atomic.AddInt64(&completed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(challengeChan)
		for _, c := range challenges {
			select {
			case <-ctx.Done():
				return
			case challengeChan <- c:
			}
		}
	}()

	wg.Wait()

	stats.ProgressSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ChallengesCompleted = int(atomic.LoadInt64(&completed))
	stats.ProgressFailures = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "progress submission completed",
		logger.Int("submitted", stats.ProgressSubmitted),
		logger.Int("completed", stats.ChallengesCompleted),
		logger.Int("failed", stats.ProgressFailures))
	return nil
}

// submitProgress posts one progress event carrying the given value.
func submitProgress(ctx context.Context, client *HTTPClient, url, challengeID string, value float64) (ProgressResponse, error) {
	payload := map[string]any{
		"challenge_id":  challengeID,
		"progress_data": map[string]any{"units_sold": value},
	}

	resp, err := client.Post(ctx, url, payload)
	if err != nil {
		return ProgressResponse{}, fmt.Errorf("post failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return ProgressResponse{}, fmt.Errorf("read failed: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return ProgressResponse{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var pr ProgressResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return ProgressResponse{}, fmt.Errorf("decode failed: %w", err)
	}
	return pr, nil
}
