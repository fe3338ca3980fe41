package config

// Config is the root configuration for wayfarer.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Lodging LodgingConfig `yaml:"lodging,omitempty"`
	Search  SearchConfig  `yaml:"search,omitempty"`
	Model   ModelConfig   `yaml:"model,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Hooks   HooksConfig   `yaml:"hooks,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket front end.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty"`
	AllowedOrigins []string    `yaml:"allowedOrigins,omitempty"`
	Metrics        *bool       `yaml:"metrics,omitempty"` // expose /metrics; defaults to true
}

// GatewayAuth configures gateway authentication. An empty token disables auth.
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// MetricsEnabled reports whether /metrics is exposed.
func (g GatewayConfig) MetricsEnabled() bool {
	return g.Metrics == nil || *g.Metrics
}

// StorageConfig selects the itinerary backend. A non-empty DatabaseURL
// selects relational (or redis) storage; otherwise itineraries are files
// under ItineraryDir.
type StorageConfig struct {
	DatabaseURL  string `yaml:"databaseUrl,omitempty"`
	ItineraryDir string `yaml:"itineraryDir,omitempty"`
}

// LodgingConfig configures the accommodation search provider.
type LodgingConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty"`
	APIKey         string `yaml:"apiKey,omitempty"`
	SearchPath     string `yaml:"searchPath,omitempty"`
	CityMapping    string `yaml:"cityMapping,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	MaxRetries     int    `yaml:"maxRetries,omitempty"`
	RateLimitMs    int    `yaml:"rateLimitMs,omitempty"`
	MaxResults     int    `yaml:"maxResults,omitempty"`
	Currency       string `yaml:"currency,omitempty"`
	Language       string `yaml:"language,omitempty"`
}

// SearchConfig configures web search for the research stage.
type SearchConfig struct {
	BraveAPIKey string `yaml:"braveApiKey,omitempty"`
	Country     string `yaml:"country,omitempty"`
	Count       int    `yaml:"count,omitempty"`
}

// ModelConfig selects the language model provider backing every stage.
type ModelConfig struct {
	Provider    string   `yaml:"provider,omitempty"` // "anthropic" | "ollama" | "mock"
	Model       string   `yaml:"model,omitempty"`
	APIKey      string   `yaml:"apiKey,omitempty"`
	Endpoint    string   `yaml:"endpoint,omitempty"`
	Fallbacks   []string `yaml:"fallbacks,omitempty"`
	MaxTokens   int      `yaml:"maxTokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTurns    int      `yaml:"maxTurns,omitempty"` // model calls per chat turn
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleLevel string `yaml:"consoleLevel,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// HooksConfig maps lifecycle events to shell commands.
type HooksConfig struct {
	TurnStart      []HookEntry `yaml:"turnStart,omitempty"`
	TurnComplete   []HookEntry `yaml:"turnComplete,omitempty"`
	TurnFailed     []HookEntry `yaml:"turnFailed,omitempty"`
	Handoff        []HookEntry `yaml:"handoff,omitempty"`
	EnrichComplete []HookEntry `yaml:"enrichComplete,omitempty"`
	GatewayStart   []HookEntry `yaml:"gatewayStart,omitempty"`
	GatewayStop    []HookEntry `yaml:"gatewayStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
