package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/soyeahso/wayfarer/internal/config"
	"github.com/soyeahso/wayfarer/internal/logging"
)

// ProviderError is returned when a model provider answers with a failure status.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP-like status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry manages LLM provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients:  make(map[string]Client),
		aliases:  make(map[string]string),
		log:      log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered model provider")
}

// Alias maps a model name/alias to a provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Direct provider name match
	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	// Alias lookup
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	// Fallback
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no model provider for %q", model)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig registers the configured provider and every
// fallback provider, with the primary as the resolution fallback. A
// provider that cannot be built (anthropic without a key) is skipped with
// a warning.
func NewRegistryFromConfig(cfg config.ModelConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	primary := strings.ToLower(strings.TrimSpace(cfg.Provider))
	names := append([]string{primary}, cfg.Fallbacks...)
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || reg.has(name) {
			continue
		}
		client := newProvider(name, cfg)
		if client == nil {
			reg.log.Warn().Str("provider", name).Msg("provider not available, skipping")
			continue
		}
		reg.Register(name, client)
		if i == 0 {
			reg.SetFallback(name)
		}
		for _, alias := range providerAliases[name] {
			reg.Alias(alias, name)
		}
	}
	return reg
}

var providerAliases = map[string][]string{
	"anthropic": {"claude", "sonnet", "opus", "haiku"},
	"ollama":    {"llama", "llama3", "mistral", "qwen"},
}

// newProvider builds a client for name. The configured model and endpoint
// only apply to the primary provider; fallbacks use their defaults.
func newProvider(name string, cfg config.ModelConfig) Client {
	primary := strings.EqualFold(name, cfg.Provider)
	model, endpoint := "", ""
	if primary {
		model, endpoint = cfg.Model, cfg.Endpoint
	}
	switch name {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil
		}
		return NewAnthropicClient(cfg.APIKey, model, endpoint)
	case "ollama":
		if model == "" {
			model = "llama3"
		}
		return NewOllamaClient(endpoint, model)
	case "mock":
		return Scripted()
	default:
		return nil
	}
}

func (r *Registry) has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}
