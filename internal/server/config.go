package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
// Configuration is read once at startup; modules receive scoped views of the
// resulting tree and never re-read it.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/greenergy.db")

	// Module defaults
	v.SetDefault("modules.ingest.enabled", true)
	v.SetDefault("modules.ingest.base_url", "https://api.esios.ree.es")
	v.SetDefault("modules.ingest.api_token", "")
	v.SetDefault("modules.ingest.request_timeout", "30s")
	v.SetDefault("modules.ingest.max_attempts", 3)
	v.SetDefault("modules.ingest.backoff_base", "1s")
	v.SetDefault("modules.ingest.default_window", "24h")
	v.SetDefault("modules.ingest.fetch_interval", "24h")
	v.SetDefault("modules.motor.enabled", true)
	v.SetDefault("modules.motor.min_samples", 24)
	v.SetDefault("modules.motor.zscore_threshold", 3.0)
	v.SetDefault("modules.motor.forecast_horizon", "24h")
	v.SetDefault("modules.motor.forecast_step", "1h")
	v.SetDefault("modules.motor.run_interval", "24h")
	v.SetDefault("modules.motor.run_on_ingest", false)
	v.SetDefault("modules.motor.result_retention", "0")
	v.SetDefault("modules.motor.maintenance_interval", "1h")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("greenergy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/greenergy")
	}

	// Environment variable support: GE_SERVER_PORT=9090
	v.SetEnvPrefix("GE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
