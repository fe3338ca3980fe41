package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/soyeahso/wayfarer/internal/agent"
	"github.com/soyeahso/wayfarer/internal/cities"
	"github.com/soyeahso/wayfarer/internal/config"
	"github.com/soyeahso/wayfarer/internal/hooks"
	"github.com/soyeahso/wayfarer/internal/llm"
	"github.com/soyeahso/wayfarer/internal/lodging"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/planner"
	"github.com/soyeahso/wayfarer/internal/store"
	"github.com/soyeahso/wayfarer/internal/websearch"
)

// loadConfig reads and validates the config file. Validation issues are
// logged one per line and fail the command.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// setupLogging replaces the bootstrap logger with one built from cfg. An
// explicit --log-level wins over the file.
func setupLogging(cfg config.LoggingConfig) (io.Closer, error) {
	opts := logging.Options{
		Level:        cfg.Level,
		ConsoleLevel: cfg.ConsoleLevel,
		ConsoleStyle: cfg.ConsoleStyle,
		File:         cfg.File,
	}
	if logLevel != "" {
		opts.Level, opts.ConsoleLevel = logLevel, logLevel
	}
	l, closer, err := logging.Setup(opts)
	if err != nil {
		return nil, err
	}
	log = l
	return closer, nil
}

// app is the wired planner stack shared by serve and chat.
type app struct {
	store   store.ItineraryStore
	hooks   *hooks.Manager
	planner *planner.Orchestrator
}

func (a *app) Close() error { return a.store.Close() }

func openStore(ctx context.Context, cfg config.Config) (store.ItineraryStore, error) {
	s, err := store.Open(ctx, store.Options{
		DatabaseURL: cfg.Storage.DatabaseURL,
		Dir:         cfg.Storage.ItineraryDir,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("opening itinerary store: %w", err)
	}
	log.Info().Str("backend", s.Backend()).Msg("itinerary store ready")
	return s, nil
}

// newEnricher wires the city table and the rate-limited search client
// over st.
func newEnricher(lc config.LodgingConfig, st store.ItineraryStore) *lodging.Enricher {
	resolver := cities.NewResolver(lc.CityMapping, log)
	client := lodging.NewClient(lodging.Config{
		BaseURL:    lc.BaseURL,
		APIKey:     lc.APIKey,
		SearchPath: lc.SearchPath,
		Timeout:    time.Duration(lc.TimeoutSeconds) * time.Second,
		MaxRetries: lc.MaxRetries,
		MaxResults: lc.MaxResults,
		RateLimit:  time.Duration(lc.RateLimitMs) * time.Millisecond,
		Currency:   lc.Currency,
		Language:   lc.Language,
	}, log)
	if err := client.Configured(); err != nil {
		log.Warn().Err(err).Msg("accommodation search disabled")
	}
	return lodging.NewEnricher(st, resolver, client, log)
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hookMgr := hooks.NewManager(log)
	if n := hookMgr.RegisterConfig(cfg.Hooks); n > 0 {
		log.Info().Int("count", n).Msg("shell hooks registered")
	}

	deps := planner.Deps{
		Store:    st,
		Enricher: newEnricher(cfg.Lodging, st),
		Hooks:    hookMgr,
	}
	if key := strings.TrimSpace(cfg.Search.BraveAPIKey); key != "" {
		deps.Search = websearch.NewBrave(key, cfg.Search.Country, cfg.Search.Count, log)
	} else {
		log.Info().Msg("no search key configured, web_search tool disabled")
	}

	registry := llm.NewRegistryFromConfig(cfg.Model, log)
	providers := registry.List()
	if len(providers) == 0 {
		st.Close()
		return nil, fmt.Errorf("no model provider available for %q", cfg.Model.Provider)
	}
	log.Info().Strs("providers", providers).Msg("model providers available")
	model := agent.NewFailoverClient(registry, strings.ToLower(cfg.Model.Provider), cfg.Model.Fallbacks, log)

	orch := planner.New(model, agent.RunnerConfig{
		MaxTurns:    cfg.Model.MaxTurns,
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
	}, deps, log)

	return &app{store: st, hooks: hookMgr, planner: orch}, nil
}
