package cluster

import "errors"

// Sentinel kinds for cluster assignment errors.
var (
	// ErrModelUnavailable means the frozen transform or centroid artifacts
	// could not be loaded or are inconsistent. Fatal for process readiness.
	ErrModelUnavailable = errors.New("frozen model unavailable")
)
