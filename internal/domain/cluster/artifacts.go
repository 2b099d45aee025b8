package cluster

import (
	"encoding/json"
	"fmt"
	"os"
)

// numericFeatureCount is the width of the numeric part of the standardized
// vector: three log-scaled monetary features, recency, active months and the
// four POI distances.
const numericFeatureCount = 9

// TransformParams are the feature-scaling parameters frozen at training
// time. Means and stddevs apply to the numeric features in canonical order;
// Categories fixes the one-hot vocabulary for the dominant category.
type TransformParams struct {
	Version    string    `json:"version"`
	Means      []float64 `json:"means"`
	Stddevs    []float64 `json:"stddevs"`
	Categories []string  `json:"categories"`
}

// Centroids is the frozen cluster-center set. Each row lives in the
// standardized feature space: numeric features first, then one one-hot slot
// per known category.
type Centroids struct {
	Version string      `json:"version"`
	Centers [][]float64 `json:"centers"`
}

// LoadArtifacts reads and validates the two frozen model blobs. Any missing
// file, decode failure or shape mismatch is reported as ErrModelUnavailable:
// the service must not start with a partial model.
func LoadArtifacts(transformPath, centroidsPath string) (TransformParams, Centroids, error) {
	var tp TransformParams
	var cs Centroids

	if err := readJSON(transformPath, &tp); err != nil {
		return tp, cs, fmt.Errorf("%w: transform %q: %w", ErrModelUnavailable, transformPath, err)
	}
	if err := readJSON(centroidsPath, &cs); err != nil {
		return tp, cs, fmt.Errorf("%w: centroids %q: %w", ErrModelUnavailable, centroidsPath, err)
	}
	if err := validateArtifacts(tp, cs); err != nil {
		return tp, cs, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return tp, cs, nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func validateArtifacts(tp TransformParams, cs Centroids) error {
	if len(tp.Means) != numericFeatureCount || len(tp.Stddevs) != numericFeatureCount {
		return fmt.Errorf("transform expects %d numeric features, got %d means and %d stddevs",
			numericFeatureCount, len(tp.Means), len(tp.Stddevs))
	}
	for i, sd := range tp.Stddevs {
		if sd <= 0 {
			return fmt.Errorf("stddev %d must be positive, got %v", i, sd)
		}
	}
	if len(tp.Categories) == 0 {
		return fmt.Errorf("transform has no category vocabulary")
	}
	if len(cs.Centers) == 0 {
		return fmt.Errorf("centroid set is empty")
	}
	want := numericFeatureCount + len(tp.Categories)
	for i, c := range cs.Centers {
		if len(c) != want {
			return fmt.Errorf("centroid %d has width %d, want %d", i, len(c), want)
		}
	}
	return nil
}
