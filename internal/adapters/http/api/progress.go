// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/repository"
	service "github.com/cyrce/loyalty/internal/app"
)

// ProgressHandler handles progress event submissions.
type ProgressHandler struct {
	deps Dependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps Dependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

func (p progressRequest) validate() error {
	switch {
	case strings.TrimSpace(p.ChallengeID) == "":
		return errors.New("missing challenge_id")
	case len(p.ProgressData) == 0:
		return errors.New("missing progress_data")
	}
	if p.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, p.Timestamp); err != nil {
			return errors.New("invalid timestamp; must be RFC3339")
		}
	}
	return nil
}

// HandleProgress handles POST /challenge/progress requests.
func (h *ProgressHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}

	var ts time.Time
	if req.Timestamp != "" {
		ts, _ = time.Parse(time.RFC3339, req.Timestamp)
	}

	completed, err := h.deps.ApplyProgress(r.Context(), req.ChallengeID, req.ProgressData, ts)
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{
		Success:      true,
		Completed:    completed,
		ProgressData: req.ProgressData,
	})
}
