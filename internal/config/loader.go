package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and DSNs can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Gateway.Auth.Token = expandEnvVars(cfg.Gateway.Auth.Token)
	cfg.Storage.DatabaseURL = expandEnvVars(cfg.Storage.DatabaseURL)
	cfg.Lodging.APIKey = expandEnvVars(cfg.Lodging.APIKey)
	cfg.Lodging.BaseURL = expandEnvVars(cfg.Lodging.BaseURL)
	cfg.Search.BraveAPIKey = expandEnvVars(cfg.Search.BraveAPIKey)
	cfg.Model.APIKey = expandEnvVars(cfg.Model.APIKey)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored and variables
// already set in the environment are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return &ConfigError{Message: "failed to load " + p + ": " + err.Error()}
		}
	}
	return nil
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if len(cfg.Gateway.AllowedOrigins) == 0 {
		cfg.Gateway.AllowedOrigins = []string{"*"}
	}
	if cfg.Storage.ItineraryDir == "" {
		cfg.Storage.ItineraryDir = DefaultItineraryDir
	}
	if cfg.Lodging.CityMapping == "" {
		cfg.Lodging.CityMapping = DefaultCityMapping
	}
	if cfg.Lodging.TimeoutSeconds == 0 {
		cfg.Lodging.TimeoutSeconds = DefaultLodgingTimeout
	}
	if cfg.Lodging.MaxRetries == 0 {
		cfg.Lodging.MaxRetries = DefaultMaxRetries
	}
	if cfg.Lodging.RateLimitMs == 0 {
		cfg.Lodging.RateLimitMs = DefaultRateLimitMs
	}
	if cfg.Lodging.MaxResults == 0 {
		cfg.Lodging.MaxResults = DefaultMaxResults
	}
	if cfg.Lodging.Currency == "" {
		cfg.Lodging.Currency = "USD"
	}
	if cfg.Lodging.Language == "" {
		cfg.Lodging.Language = "en-us"
	}
	if cfg.Search.Country == "" {
		cfg.Search.Country = "us"
	}
	if cfg.Search.Count == 0 {
		cfg.Search.Count = 5
	}
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "anthropic"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = DefaultModelMaxTokens
	}
	if cfg.Model.MaxTurns == 0 {
		cfg.Model.MaxTurns = DefaultModelMaxTurns
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleLevel == "" {
		cfg.Logging.ConsoleLevel = cfg.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads WAYFARER_* and provider environment variables and
// overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WAYFARER_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("WAYFARER_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("WAYFARER_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Auth.Token = v
	}
	if v := os.Getenv("WAYFARER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := firstEnv("SUPABASE_DB_URL", "DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = cleanDSN(v)
	}
	if v := firstEnv("AGODA_BASE_URL", "AGODA_API_BASE_URL"); v != "" {
		cfg.Lodging.BaseURL = v
	}
	cfg.Lodging.BaseURL = strings.TrimRight(cfg.Lodging.BaseURL, "/")
	if v := os.Getenv("AGODA_API_KEY"); v != "" {
		cfg.Lodging.APIKey = v
	}
	if v := os.Getenv("AGODA_SEARCH_PATH"); v != "" {
		cfg.Lodging.SearchPath = v
	}
	if v := os.Getenv("CITY_MAPPING_CSV"); v != "" {
		cfg.Lodging.CityMapping = v
	}
	if v := os.Getenv("BRAVE_API_KEY"); v != "" {
		cfg.Search.BraveAPIKey = v
	}
	if v := os.Getenv("WAYFARER_MODEL"); v != "" {
		cfg.Model.Model = v
	}
	switch cfg.Model.Provider {
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Model.APIKey == "" {
			cfg.Model.APIKey = v
		}
	case "ollama":
		if v := os.Getenv("OLLAMA_HOST"); v != "" && cfg.Model.Endpoint == "" {
			cfg.Model.Endpoint = v
		}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// cleanDSN strips surrounding whitespace and quotes that commonly leak in
// from .env files.
func cleanDSN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
