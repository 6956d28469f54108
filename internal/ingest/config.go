package ingest

import "time"

// IngestConfig holds configuration for the ingestion module.
type IngestConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIToken       string        `mapstructure:"api_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	DefaultWindow  time.Duration `mapstructure:"default_window"`
	FetchInterval  time.Duration `mapstructure:"fetch_interval"`
}

// DefaultConfig returns sensible defaults for the ingest module.
func DefaultConfig() IngestConfig {
	return IngestConfig{
		Enabled:        true,
		BaseURL:        "https://api.esios.ree.es",
		RequestTimeout: 30 * time.Second,
		MaxAttempts:    3,
		BackoffBase:    1 * time.Second,
		DefaultWindow:  24 * time.Hour,
		FetchInterval:  24 * time.Hour,
	}
}
