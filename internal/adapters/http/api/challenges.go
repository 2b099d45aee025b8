// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/cyrce/loyalty/internal/app"
	"github.com/cyrce/loyalty/internal/domain/cluster"
	"github.com/cyrce/loyalty/internal/domain/model"
)

// ChallengeHandler handles challenge creation requests.
type ChallengeHandler struct {
	deps Dependencies
}

// NewChallengeHandler creates a new challenge creation handler.
func NewChallengeHandler(deps Dependencies) *ChallengeHandler {
	return &ChallengeHandler{deps: deps}
}

// HandleCreate handles POST /store requests. The body is the ten-field
// customer profile; the response carries the assigned segment and the full
// generated challenge. Generative outages never surface here, only an
// unusable frozen model does.
func (h *ChallengeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var v model.FeatureVector
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}

	stored, strategy, err := h.deps.CreateChallenge(r.Context(), v)
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	case errors.Is(err, cluster.ErrModelUnavailable):
		writeError(w, http.StatusInternalServerError, "model_unavailable", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusOK, createResponse{
		Success:     true,
		ChallengeID: stored.ID,
		Strategy:    string(strategy),
		Cluster: clusterInfo{
			ID:             stored.ClusterID,
			Name:           stored.ClusterMeta.Name,
			Description:    stored.ClusterMeta.Description,
			Recommendation: stored.ClusterMeta.Recommendation,
		},
		Challenge: stored.Challenge,
	})
}
