// Package lodging searches the accommodation provider and merges results
// into stored itineraries.
package lodging

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/metrics"
)

// Defaults for Config fields left at zero.
const (
	DefaultTimeout    = 20 * time.Second
	DefaultMaxRetries = 3
	DefaultMaxResults = 3
	DefaultRateLimit  = time.Second
	DefaultCurrency   = "USD"
	DefaultLanguage   = "en-us"

	fallbackMaxResults = 10
	maxBackoff         = 8 * time.Second
	errorBodyLimit     = 2000
)

// fallbackPaths are tried after a configured search path.
var fallbackPaths = []string{"/hotels/search", "/search"}

// Config holds the provider endpoint and request policy.
type Config struct {
	BaseURL    string
	APIKey     string
	SearchPath string
	Timeout    time.Duration
	MaxRetries int
	MaxResults int
	RateLimit  time.Duration
	Currency   string
	Language   string
}

// Query describes one night's search.
type Query struct {
	CityID   int
	CheckIn  string
	CheckOut string
	Band     Band
	Adults   int
}

// RequestError is the record kept for a non-success response.
type RequestError struct {
	Status int    `json:"status"`
	Body   any    `json:"body"`
	Path   string `json:"path"`
}

// Result is the outcome of a search. At most one of Payload and Err is set;
// both are nil when every attempt failed before a response arrived.
type Result struct {
	// Payload is the provider's JSON object or list, verbatim.
	Payload json.RawMessage
	// Err is the last non-success response seen.
	Err *RequestError
}

// Searcher is what the enricher needs from a search client.
type Searcher interface {
	// Configured fails when the endpoint or key is missing.
	Configured() error
	Search(ctx context.Context, q Query) Result
}

// Sleeper waits between retries. It returns early with ctx's error.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Client.
type Option func(*Client)

// WithLimiter shares a limiter between clients.
func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithSleeper replaces the retry backoff wait.
func WithSleeper(s Sleeper) Option { return func(c *Client) { c.sleep = s } }

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// Client posts searches to the provider. All calls made through one client
// share a single rate limiter regardless of which conversation made them.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	sleep   Sleeper
	log     *logging.Logger
}

// NewClient fills zero Config fields with defaults.
func NewClient(cfg Config, log *logging.Logger, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RateLimit), 1),
		sleep:   sleepContext,
		log:     log.Sub("lodging"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured implements Searcher.
func (c *Client) Configured() error {
	if c.cfg.BaseURL == "" || c.cfg.APIKey == "" {
		return domain.NewMisconfiguration("AGODA_BASE_URL or AGODA_API_KEY not configured in environment")
	}
	return nil
}

// CandidatePaths lists the endpoint paths tried in order. Without a
// configured search path only the base URL itself is used.
func (c *Client) CandidatePaths() []string {
	p := strings.TrimSpace(c.cfg.SearchPath)
	if p == "" {
		return []string{""}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	paths := []string{p}
	for _, fb := range fallbackPaths {
		if fb != p {
			paths = append(paths, fb)
		}
	}
	return paths
}

// Search implements Searcher. Each path gets up to MaxRetries attempts with
// capped exponential backoff. A response with no items triggers one search
// without price filters and then one with only the city and dates.
func (c *Client) Search(ctx context.Context, q Query) Result {
	var (
		resp    json.RawMessage
		lastErr *RequestError
	)

	for _, path := range c.CandidatePaths() {
		url := c.cfg.BaseURL + path
		log := c.log.With("path", path)

		for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
			status, body, err := c.post(ctx, url, c.payload(q))
			switch {
			case err != nil:
				log.Warn().Err(err).Int("attempt", attempt).Msg("search request error")
			case status == http.StatusOK:
				resp = body
			default:
				log.Warn().Int("status", status).Int("attempt", attempt).Msg("search returned non-success")
				lastErr = &RequestError{Status: status, Body: errorBody(body), Path: path}
			}
			if resp != nil || ctx.Err() != nil {
				break
			}
			if attempt < c.cfg.MaxRetries {
				if err := c.sleep(ctx, backoff(attempt)); err != nil {
					break
				}
			}
		}

		if isObject(resp) && domain.HasNoResults(resp) {
			resp = c.fallback(ctx, url, q, resp)
		}
		if resp != nil || ctx.Err() != nil {
			break
		}
	}

	if isObject(resp) || isList(resp) {
		return Result{Payload: resp}
	}
	return Result{Err: lastErr}
}

// fallback broadens an empty search. Non-success responses keep the
// current payload.
func (c *Client) fallback(ctx context.Context, url string, q Query, current json.RawMessage) json.RawMessage {
	c.log.Info().Int("city_id", q.CityID).Msg("fallback search without price filters")
	broad := c.payload(q)
	broad.Criteria.Additional.DailyRate = nil
	broad.Criteria.Additional.MaxResult = fallbackMaxResults
	broad.Criteria.Additional.SortBy = "Popularity"
	if status, body, err := c.post(ctx, url, broad); err == nil && status == http.StatusOK {
		current = body
	} else if err != nil {
		c.log.Warn().Err(err).Msg("fallback search error")
	}

	if !isObject(current) || !domain.HasNoResults(current) {
		return current
	}

	c.log.Info().Int("city_id", q.CityID).Msg("second fallback with minimal criteria")
	minimal := searchRequest{Criteria: criteria{CheckInDate: q.CheckIn, CheckOutDate: q.CheckOut, CityID: q.CityID}}
	if status, body, err := c.post(ctx, url, minimal); err == nil && status == http.StatusOK {
		current = body
	} else if err != nil {
		c.log.Warn().Err(err).Msg("second fallback error")
	}
	return current
}

type searchRequest struct {
	Criteria criteria `json:"criteria"`
}

type criteria struct {
	Additional   *additional `json:"additional,omitempty"`
	CheckInDate  string      `json:"checkInDate"`
	CheckOutDate string      `json:"checkOutDate"`
	CityID       int         `json:"cityId"`
}

type additional struct {
	Currency           string    `json:"currency"`
	DailyRate          *Band     `json:"dailyRate,omitempty"`
	DiscountOnly       bool      `json:"discountOnly"`
	Language           string    `json:"language"`
	MaxResult          int       `json:"maxResult"`
	MinimumReviewScore int       `json:"minimumReviewScore"`
	MinimumStarRating  int       `json:"minimumStarRating"`
	Occupancy          occupancy `json:"occupancy"`
	SortBy             string    `json:"sortBy"`
}

type occupancy struct {
	NumberOfAdult    int   `json:"numberOfAdult"`
	NumberOfChildren int   `json:"numberOfChildren"`
	ChildrenAges     []int `json:"childrenAges"`
}

func (c *Client) payload(q Query) searchRequest {
	band := q.Band
	return searchRequest{Criteria: criteria{
		Additional: &additional{
			Currency:  c.cfg.Currency,
			DailyRate: &band,
			Language:  c.cfg.Language,
			MaxResult: c.cfg.MaxResults,
			Occupancy: occupancy{
				NumberOfAdult: max(1, q.Adults),
				ChildrenAges:  []int{},
			},
			SortBy: "PriceAsc",
		},
		CheckInDate:  q.CheckIn,
		CheckOutDate: q.CheckOut,
		CityID:       q.CityID,
	}}
}

// post waits for the shared limiter, then sends one request. A 200 body
// that is not JSON is reported as an error so the attempt is retried.
func (c *Client) post(ctx context.Context, url string, body searchRequest) (int, json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip,deflate")
	// Gateways disagree on the auth header name and casing.
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header["apiKey"] = []string{c.cfg.APIKey}
	req.Header["ApiKey"] = []string{c.cfg.APIKey}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	metrics.LodgingDuration.Observe(elapsed.Seconds())
	if err != nil {
		metrics.LodgingRequests.WithLabelValues("transport_error").Inc()
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		metrics.LodgingRequests.WithLabelValues("transport_error").Inc()
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int64("latency_ms", elapsed.Milliseconds()).
		Int("city_id", body.Criteria.CityID).
		Str("check_in", body.Criteria.CheckInDate).
		Str("check_out", body.Criteria.CheckOutDate).
		Msg("search response")

	if resp.StatusCode != http.StatusOK {
		metrics.LodgingRequests.WithLabelValues("http_error").Inc()
		return resp.StatusCode, data, nil
	}
	if !json.Valid(data) {
		metrics.LodgingRequests.WithLabelValues("invalid_body").Inc()
		return resp.StatusCode, nil, fmt.Errorf("response is not JSON")
	}
	metrics.LodgingRequests.WithLabelValues("ok").Inc()
	return resp.StatusCode, data, nil
}

// readBody decodes gzip and deflate bodies. Deflate is tried as zlib first,
// then as a raw stream.
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(fr)
	default:
		return raw, nil
	}
}

// errorBody keeps JSON objects and lists as-is and truncates anything else
// to a bounded string.
func errorBody(body []byte) any {
	if isObject(body) || isList(body) {
		return json.RawMessage(bytes.Clone(body))
	}
	text := string(body)
	var s string
	if json.Unmarshal(body, &s) == nil {
		text = s
	}
	if utf8.RuneCountInString(text) > errorBodyLimit {
		text = string([]rune(text)[:errorBodyLimit])
	}
	return text
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * time.Second
	return min(d, maxBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isObject(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) > 0 && t[0] == '{' && json.Valid(t)
}

func isList(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) > 0 && t[0] == '[' && json.Valid(t)
}
