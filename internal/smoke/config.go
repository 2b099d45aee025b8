package smoke

import "time"

// Config holds configuration for the smoke run
type Config struct {
	BaseURL       string        // Base URL of the service
	NumChallenges int           // Number of challenges to create
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	OutputFile    string        // Output file for generated profiles
	LogFile       string        // Log file for run output
	Verbose       bool          // Enable verbose logging
}

// Profile is the customer purchase profile submitted for challenge creation
type Profile struct {
	TicketAverage     float64 `json:"ticket_average"`
	PurchaseFrequency float64 `json:"purchase_frequency"`
	Variability       float64 `json:"variability"`
	RecencyMonths     int     `json:"recency_months"`
	ActiveMonths      int     `json:"active_months"`
	DistHospitalM     float64 `json:"dist_hospital_m"`
	DistSchoolM       float64 `json:"dist_school_m"`
	DistGymM          float64 `json:"dist_gym_m"`
	DistOfficeM       float64 `json:"dist_office_m"`
	DominantCategory  string  `json:"dominant_category"`
}

// CreateResponse is the challenge creation reply
type CreateResponse struct {
	Success     bool   `json:"success"`
	ChallengeID string `json:"challenge_id"`
	Strategy    string `json:"strategy"`
	Challenge   struct {
		NumericGoal float64 `json:"numeric_goal"`
		Unit        string  `json:"unit"`
		ClusterID   int     `json:"cluster_id"`
	} `json:"challenge"`
}

// ProgressResponse is the progress submission reply
type ProgressResponse struct {
	Success   bool `json:"success"`
	Completed bool `json:"completed"`
}

// StatusResponse is the challenge status reply
type StatusResponse struct {
	Success   bool `json:"success"`
	Challenge struct {
		ID             string           `json:"id"`
		ClusterID      int              `json:"cluster_id"`
		NumericGoal    float64          `json:"numeric_goal"`
		Completed      bool             `json:"completed"`
		ProgressEvents []map[string]any `json:"progress_events"`
	} `json:"challenge"`
}

// Created tracks one challenge created during the run
type Created struct {
	Profile     Profile
	ChallengeID string
	Strategy    string
	NumericGoal float64
	ClusterID   int
}

// Stats holds smoke run statistics
type Stats struct {
	ProfilesGenerated   int
	ChallengesCreated   int
	FallbackChallenges  int
	CreateFailures      int
	ProgressSubmitted   int
	ChallengesCompleted int
	ProgressFailures    int
	VerifyFailures      int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
