// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FeatureVector is the behavioral and geospatial profile of a single
// customer. It is built once per request and never mutated.
type FeatureVector struct {
	TicketAverage     float64 `json:"ticket_average"`     // average purchase value in USD
	PurchaseFrequency float64 `json:"purchase_frequency"` // monthly purchase volume in USD
	Variability       float64 `json:"variability"`        // stddev of monthly purchases
	RecencyMonths     int     `json:"recency_months"`     // months since last purchase
	ActiveMonths      int     `json:"active_months"`      // months with at least one purchase
	DistHospitalM     float64 `json:"dist_hospital_m"`    // meters to nearest hospital
	DistSchoolM       float64 `json:"dist_school_m"`      // meters to nearest school
	DistGymM          float64 `json:"dist_gym_m"`         // meters to nearest gym
	DistOfficeM       float64 `json:"dist_office_m"`      // meters to nearest office
	DominantCategory  string  `json:"dominant_category"`  // most purchased category, e.g. "COLAS"
}

// Validate checks the invariants of an incoming feature vector. A vector
// that fails here is rejected before it ever reaches the assigner.
func (v FeatureVector) Validate() error {
	switch {
	case v.TicketAverage <= 0:
		return errors.New("ticket_average must be positive")
	case v.PurchaseFrequency < 0:
		return errors.New("purchase_frequency must not be negative")
	case v.Variability < 0:
		return errors.New("variability must not be negative")
	case v.RecencyMonths < 0:
		return errors.New("recency_months must not be negative")
	case v.ActiveMonths < 1:
		return errors.New("active_months must be at least 1")
	case v.DistHospitalM < 0 || v.DistSchoolM < 0 || v.DistGymM < 0 || v.DistOfficeM < 0:
		return errors.New("distances must not be negative")
	case strings.TrimSpace(v.DominantCategory) == "":
		return errors.New("missing dominant_category")
	}
	return nil
}

// ProductGroup is a curated, index-aligned list of product names and image
// URLs for one product type. Order matters: the first entry is the default
// target product for generated challenges.
type ProductGroup struct {
	Type     string   `json:"type" yaml:"type"`
	Products []string `json:"products" yaml:"products"`
	Images   []string `json:"images" yaml:"images"`
}

// ClusterMetadata describes one behavioral segment. Challenges keep a
// snapshot of it so historical records stay stable when the catalog changes.
type ClusterMetadata struct {
	Name           string         `json:"name" yaml:"name"`
	Description    string         `json:"description" yaml:"description"`
	Recommendation string         `json:"recommendation" yaml:"recommendation"`
	ProductCatalog []ProductGroup `json:"product_catalog" yaml:"product_catalog"`
}

// ProgressEvent is an incremental, timestamped report of goal-relevant
// activity submitted against an open challenge.
type ProgressEvent struct {
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Challenge is the persisted loyalty goal generated for one customer.
// ID and CreatedAt are assigned by the store on creation; ProgressEvents is
// append-only and Completed is monotonic once true.
type Challenge struct {
	ID             string          `json:"id,omitempty"`
	SourceFeatures FeatureVector   `json:"source_features"`
	ClusterID      int             `json:"cluster_id"`
	ClusterMeta    ClusterMetadata `json:"cluster_metadata"`

	Title             string    `json:"title"`
	Description       string    `json:"description"`
	NumericGoal       float64   `json:"numeric_goal"`
	Unit              string    `json:"unit"`
	TargetProduct     string    `json:"target_product"`
	Incentive         string    `json:"incentive"`
	Deadline          time.Time `json:"deadline"`
	Tips              []string  `json:"tips"`
	ImageURL          string    `json:"image_url"`
	SuggestedProducts []string  `json:"suggested_products"`
	SuggestedImages   []string  `json:"suggested_images"`

	Completed      bool            `json:"completed"`
	ProgressEvents []ProgressEvent `json:"progress_events"`
	CreatedAt      time.Time       `json:"created_at,omitempty"`
}

// Validate checks the structural invariants every generated challenge must
// satisfy, regardless of which strategy produced it.
func (c Challenge) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return errors.New("missing title")
	case strings.TrimSpace(c.Description) == "":
		return errors.New("missing description")
	case c.NumericGoal <= 0:
		return fmt.Errorf("numeric goal must be positive, got %v", c.NumericGoal)
	case strings.TrimSpace(c.TargetProduct) == "":
		return errors.New("missing target product")
	case len(c.Tips) == 0:
		return errors.New("tips must not be empty")
	case c.Deadline.IsZero():
		return errors.New("missing deadline")
	}
	return nil
}
