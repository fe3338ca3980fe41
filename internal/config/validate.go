package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Gateway
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}
	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		add("gateway.bind", "must be one of %v, got %q", validBinds, cfg.Gateway.Bind)
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		add("gateway.customBindHost", "required when bind: custom")
	}

	// Storage
	if dsn := cfg.Storage.DatabaseURL; dsn != "" && strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			add("storage.databaseUrl", "invalid URL: %v", err)
		} else if !slices.Contains([]string{"postgres", "postgresql", "sqlite", "file", "redis", "rediss"}, u.Scheme) {
			add("storage.databaseUrl", "unsupported scheme %q", u.Scheme)
		}
	}

	// Lodging
	if cfg.Lodging.BaseURL != "" {
		if u, err := url.Parse(cfg.Lodging.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("lodging.baseUrl", "must be an absolute URL, got %q", cfg.Lodging.BaseURL)
		}
	}
	if cfg.Lodging.MaxRetries < 0 {
		add("lodging.maxRetries", "must be >= 0, got %d", cfg.Lodging.MaxRetries)
	}
	if cfg.Lodging.TimeoutSeconds < 0 {
		add("lodging.timeoutSeconds", "must be >= 0, got %d", cfg.Lodging.TimeoutSeconds)
	}

	// Model
	validProviders := []string{"anthropic", "ollama", "mock"}
	if !slices.Contains(validProviders, cfg.Model.Provider) {
		add("model.provider", "must be one of %v, got %q", validProviders, cfg.Model.Provider)
	}
	if cfg.Model.Provider == "anthropic" && cfg.Model.APIKey == "" {
		add("model.apiKey", "required for provider anthropic (or set ANTHROPIC_API_KEY)")
	}
	if cfg.Model.Provider == "ollama" && cfg.Model.Model == "" {
		add("model.model", "required for provider ollama")
	}
	if cfg.Model.MaxTurns < 0 {
		add("model.maxTurns", "must be >= 0, got %d", cfg.Model.MaxTurns)
	}

	// Logging
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	if cfg.Logging.ConsoleLevel != "" && !slices.Contains(validLogLevels, cfg.Logging.ConsoleLevel) {
		add("logging.consoleLevel", "must be one of %v, got %q", validLogLevels, cfg.Logging.ConsoleLevel)
	}
	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	// Hooks
	for name, entries := range cfg.Hooks.ByEvent() {
		for i, h := range entries {
			if strings.TrimSpace(h.Command) == "" {
				add(fmt.Sprintf("hooks.%s[%d].command", name, i), "command is required")
			}
		}
	}

	return issues
}

// ByEvent returns hook entries keyed by their yaml field name.
func (h HooksConfig) ByEvent() map[string][]HookEntry {
	return map[string][]HookEntry{
		"turnStart":      h.TurnStart,
		"turnComplete":   h.TurnComplete,
		"turnFailed":     h.TurnFailed,
		"handoff":        h.Handoff,
		"enrichComplete": h.EnrichComplete,
		"gatewayStart":   h.GatewayStart,
		"gatewayStop":    h.GatewayStop,
	}
}
