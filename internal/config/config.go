package config

import "time"

// Config represents the complete application configuration. Values are
// layered as defaults, then the config file, then LISTLENS_* environment
// variables, then command-line flags.
type Config struct {
	HubSpot   HubSpotConfig   `mapstructure:"hubspot"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Files     FilesConfig     `mapstructure:"files"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Workers   int             `mapstructure:"workers"`
}

// HubSpotConfig contains remote API settings.
type HubSpotConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	BearerToken    string        `mapstructure:"bearer_token"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxFilterDepth int           `mapstructure:"max_filter_depth"`
}

// RateLimitConfig is the rolling window shared by all workers.
type RateLimitConfig struct {
	Requests     int           `mapstructure:"requests"`
	Window       time.Duration `mapstructure:"window"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// FilesConfig names the run's input and output files.
type FilesConfig struct {
	Lists      string `mapstructure:"lists"`
	Properties string `mapstructure:"properties"`
	Results    string `mapstructure:"results"`
	ErrorLog   string `mapstructure:"error_log"`
	LogSuccess bool   `mapstructure:"log_success"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled starts the Prometheus exporter for the duration of a run
	Enabled bool `mapstructure:"enabled"`

	// Port is the exporter port; 0 picks a free port
	Port int `mapstructure:"port"`
}
