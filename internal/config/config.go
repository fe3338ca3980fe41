package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values shared by Defaults and applyDefaults.
const (
	DefaultPort           = 8000
	DefaultCityMapping    = "city_mapping.csv"
	DefaultItineraryDir   = "itineraries"
	DefaultLodgingTimeout = 20
	DefaultMaxRetries     = 3
	DefaultRateLimitMs    = 1000
	DefaultMaxResults     = 3
	DefaultModelMaxTokens = 4096
	DefaultModelMaxTurns  = 10
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}
