// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error kinds.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite challenge database path. ":memory:" is accepted.
	DBPath string `koanf:"db_path"`

	// TransformPath and CentroidsPath locate the frozen model artifacts.
	TransformPath string `koanf:"transform_path"`
	CentroidsPath string `koanf:"centroids_path"`

	// GeminiAPIKey enables the generative strategy. Empty means every
	// challenge takes the deterministic fallback path.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel names the generateContent model.
	GeminiModel string `koanf:"gemini_model"`

	// GeminiBaseURL points at the generative API, overridable for tests.
	GeminiBaseURL string `koanf:"gemini_base_url"`

	// GeminiTimeoutMS bounds each generation call.
	GeminiTimeoutMS int `koanf:"gemini_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		DBPath:          "challenges.db",
		TransformPath:   "artifacts/transform.json",
		CentroidsPath:   "artifacts/centroids.json",
		GeminiModel:     "gemini-2.0-flash",
		GeminiBaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		GeminiTimeoutMS: 12_000,
	}
}
