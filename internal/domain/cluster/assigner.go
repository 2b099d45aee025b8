// Package cluster assigns feature vectors to behavioral segments using a
// transform and centroid set frozen by an offline training run.
package cluster

import (
	"math"

	"github.com/cyrce/loyalty/internal/domain/model"
)

// Assigner maps a feature vector to a cluster label. Implementations must be
// pure: same vector and same frozen model always yield the same label.
type Assigner interface {
	Assign(v model.FeatureVector) (int, error)
}

// CentroidAssigner implements Assigner with standard scaling plus
// nearest-centroid lookup against the frozen center set.
type CentroidAssigner struct {
	params    TransformParams
	centroids Centroids
	catIndex  map[string]int
}

// NewCentroidAssigner builds an assigner from validated artifacts.
func NewCentroidAssigner(params TransformParams, centroids Centroids) (*CentroidAssigner, error) {
	if err := validateArtifacts(params, centroids); err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(params.Categories))
	for i, c := range params.Categories {
		idx[c] = i
	}
	return &CentroidAssigner{params: params, centroids: centroids, catIndex: idx}, nil
}

// K returns the number of clusters in the frozen model.
func (a *CentroidAssigner) K() int { return len(a.centroids.Centers) }

// ModelVersion returns the centroid artifact version.
func (a *CentroidAssigner) ModelVersion() string { return a.centroids.Version }

// Assign transforms the vector into the standardized training space and
// returns the index of the nearest centroid, ties broken by lowest index.
func (a *CentroidAssigner) Assign(v model.FeatureVector) (int, error) {
	x := a.encode(v)

	best := 0
	bestDist := math.Inf(1)
	for i, c := range a.centroids.Centers {
		d := squaredDistance(x, c)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, nil
}

// encode applies, in the order fixed at training time: log1p on the three
// right-skewed monetary features, standard scaling on all numeric features,
// then one-hot encoding of the dominant category. Categories unseen at
// training time encode as all zeros.
func (a *CentroidAssigner) encode(v model.FeatureVector) []float64 {
	numeric := [numericFeatureCount]float64{
		math.Log1p(v.TicketAverage),
		math.Log1p(v.PurchaseFrequency),
		math.Log1p(v.Variability),
		float64(v.RecencyMonths),
		float64(v.ActiveMonths),
		v.DistHospitalM,
		v.DistSchoolM,
		v.DistGymM,
		v.DistOfficeM,
	}

	x := make([]float64, numericFeatureCount+len(a.params.Categories))
	for i, val := range numeric {
		x[i] = (val - a.params.Means[i]) / a.params.Stddevs[i]
	}
	if i, ok := a.catIndex[v.DominantCategory]; ok {
		x[numericFeatureCount+i] = 1
	}
	return x
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
