// Package websearch runs web searches for the destination research stage.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
)

const (
	// DefaultEndpoint is the Brave web search API.
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	defaultCount    = 5
	maxCount        = 20
)

// Result is one web hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age,omitempty"`
}

type braveResponse struct {
	Query struct {
		Original string `json:"original"`
	} `json:"query"`
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

// Brave queries the Brave Search API.
type Brave struct {
	apiKey   string
	country  string
	count    int
	endpoint string
	client   *http.Client
	log      *logging.Logger
}

// Option configures a Brave client.
type Option func(*Brave)

// WithEndpoint points the client at another URL (tests, proxies).
func WithEndpoint(u string) Option { return func(b *Brave) { b.endpoint = u } }

// NewBrave creates a client. country and count fall back to "us" and 5.
func NewBrave(apiKey, country string, count int, log *logging.Logger, opts ...Option) *Brave {
	if country == "" {
		country = "us"
	}
	if count <= 0 {
		count = defaultCount
	}
	b := &Brave{
		apiKey:   apiKey,
		country:  country,
		count:    min(count, maxCount),
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log.Sub("websearch"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Search returns formatted results for query.
func (b *Brave) Search(ctx context.Context, query string) (string, error) {
	if b.apiKey == "" {
		return "", domain.NewMisconfiguration("BRAVE_API_KEY not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(b.count))
	params.Set("country", b.country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return "", domain.NewExternalService("web search", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	b.log.Debug().Str("query", query).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("web search")

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewExternalService("web search", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 300)))
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Query.Original == "" {
		parsed.Query.Original = query
	}
	return Format(parsed.Query.Original, parsed.Web.Results), nil
}

// Format renders results as a numbered list.
func Format(query string, results []Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Web search results for: %s\n\n", query)
	if len(results) == 0 {
		sb.WriteString("No web results found.\n")
		return sb.String()
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&sb, "   URL: %s\n", r.URL)
		if r.Age != "" {
			fmt.Fprintf(&sb, "   Age: %s\n", r.Age)
		}
		fmt.Fprintf(&sb, "   %s\n\n", r.Description)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
