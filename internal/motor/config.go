package motor

import "time"

// MotorConfig holds configuration for the analytics motor.
type MotorConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MinSamples          int           `mapstructure:"min_samples"`
	ZScoreThreshold     float64       `mapstructure:"zscore_threshold"`
	ForecastHorizon     time.Duration `mapstructure:"forecast_horizon"`
	ForecastStep        time.Duration `mapstructure:"forecast_step"`
	RunInterval         time.Duration `mapstructure:"run_interval"`
	RunOnIngest         bool          `mapstructure:"run_on_ingest"`
	ResultRetention     time.Duration `mapstructure:"result_retention"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
}

// DefaultConfig returns sensible defaults for the motor module.
// ResultRetention of 0 keeps the full result history.
func DefaultConfig() MotorConfig {
	return MotorConfig{
		Enabled:             true,
		MinSamples:          24,
		ZScoreThreshold:     3.0,
		ForecastHorizon:     24 * time.Hour,
		ForecastStep:        1 * time.Hour,
		RunInterval:         24 * time.Hour,
		RunOnIngest:         false,
		ResultRetention:     0,
		MaintenanceInterval: 1 * time.Hour,
	}
}
