// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/repository"
	"github.com/cyrce/loyalty/internal/domain/challenge"
	"github.com/cyrce/loyalty/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// CreateChallenge runs the segmentation and generation pipeline for one
	// customer profile and persists the result.
	CreateChallenge(ctx context.Context, v model.FeatureVector) (repository.Stored, challenge.Strategy, error)

	// ApplyProgress records a progress event and reports completion.
	ApplyProgress(ctx context.Context, id string, payload map[string]any, ts time.Time) (bool, error)

	// ChallengeStatus returns the stored snapshot for one challenge.
	ChallengeStatus(ctx context.Context, id string) (repository.Stored, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	challengeHandler *ChallengeHandler
	progressHandler  *ProgressHandler
	statusHandler    *StatusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		challengeHandler: NewChallengeHandler(deps),
		progressHandler:  NewProgressHandler(deps),
		statusHandler:    NewStatusHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/store", MetricsMiddleware(s.challengeHandler.HandleCreate, "store"))
	mux.HandleFunc("/challenge/progress", MetricsMiddleware(s.progressHandler.HandleProgress, "challenge_progress"))
	mux.HandleFunc("/challenge/", MetricsMiddleware(s.statusHandler.HandleStatus, "challenge_status"))
}

// clusterInfo is the segment summary embedded in creation responses.
type clusterInfo struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

type createResponse struct {
	Success     bool            `json:"success"`
	ChallengeID string          `json:"challenge_id"`
	Strategy    string          `json:"strategy"`
	Cluster     clusterInfo     `json:"cluster"`
	Challenge   model.Challenge `json:"challenge"`
}

type progressRequest struct {
	ChallengeID  string         `json:"challenge_id"`
	ProgressData map[string]any `json:"progress_data"`
	Timestamp    string         `json:"timestamp,omitempty"`
}

type progressResponse struct {
	Success      bool           `json:"success"`
	Completed    bool           `json:"completed"`
	ProgressData map[string]any `json:"progress_data"`
}

type statusResponse struct {
	Success   bool            `json:"success"`
	Challenge model.Challenge `json:"challenge"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
