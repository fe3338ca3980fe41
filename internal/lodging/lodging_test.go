package lodging

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/soyeahso/wayfarer/internal/cities"
	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/store"
)

// recorder captures decoded request bodies and replies from a script.
type recorder struct {
	mu      sync.Mutex
	bodies  []map[string]any
	paths   []string
	headers []http.Header
	reply   func(n int, body map[string]any) (int, string)
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(data, &body)

	rec.mu.Lock()
	rec.bodies = append(rec.bodies, body)
	rec.paths = append(rec.paths, r.URL.Path)
	rec.headers = append(rec.headers, r.Header.Clone())
	n := len(rec.bodies)
	rec.mu.Unlock()

	status, out := rec.reply(n, body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, out)
}

func (rec *recorder) body(i int) map[string]any {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.bodies[i]
}

func (rec *recorder) pathList() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.paths...)
}

func (rec *recorder) header(i int) http.Header {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.headers[i]
}

func (rec *recorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.bodies)
}

type sleeps struct {
	mu sync.Mutex
	d  []time.Duration
}

func (s *sleeps) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.d = append(s.d, d)
	s.mu.Unlock()
	return nil
}

func newTestClient(t *testing.T, rec *recorder, cfg Config, sl *sleeps) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/"
	if cfg.APIKey == "" {
		cfg.APIKey = "secret"
	}
	if sl == nil {
		sl = &sleeps{}
	}
	return NewClient(cfg, logging.New(nil, "silent"),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithSleeper(sl.sleep),
	)
}

func additionalOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	crit, ok := body["criteria"].(map[string]any)
	require.True(t, ok)
	add, _ := crit["additional"].(map[string]any)
	return add
}

func TestRateBand(t *testing.T) {
	cases := []struct {
		budget string
		nights int
		want   Band
	}{
		{"", 3, Band{20, 500}},
		{"budget", 3, Band{20, 80}},
		{" Cheap ", 3, Band{20, 80}},
		{"mid-range", 3, Band{80, 200}},
		{"MEDIUM", 3, Band{80, 200}},
		{"premium", 3, Band{200, 800}},
		{"150", 3, Band{75, 187}},
		{"30", 3, Band{20, 40}},
		{"500", 3, Band{250, 625}},
		{"600", 3, Band{100, 300}},
		{"1000", 0, Band{500, 1500}},
		{"2000", 4, Band{250, 750}},
		{"whatever", 3, Band{20, 500}},
		{"NaN", 3, Band{20, 500}},
	}
	for _, tc := range cases {
		t.Run(tc.budget, func(t *testing.T) {
			assert.Equal(t, tc.want, RateBand(tc.budget, tc.nights))
		})
	}
}

func TestCandidatePaths(t *testing.T) {
	log := logging.New(nil, "silent")
	assert.Equal(t, []string{""}, NewClient(Config{}, log).CandidatePaths())
	assert.Equal(t, []string{"/affiliate", "/hotels/search", "/search"},
		NewClient(Config{SearchPath: "affiliate"}, log).CandidatePaths())
	assert.Equal(t, []string{"/search", "/hotels/search"},
		NewClient(Config{SearchPath: "/search"}, log).CandidatePaths())
}

func TestConfigured(t *testing.T) {
	log := logging.New(nil, "silent")
	err := NewClient(Config{BaseURL: "http://x"}, log).Configured()
	assert.True(t, domain.Is(err, domain.ErrMisconfigured))
	err = NewClient(Config{APIKey: "k"}, log).Configured()
	assert.True(t, domain.Is(err, domain.ErrMisconfigured))
	assert.NoError(t, NewClient(Config{BaseURL: "http://x", APIKey: "k"}, log).Configured())
}

func TestSearchSendsCriteria(t *testing.T) {
	rec := &recorder{reply: func(int, map[string]any) (int, string) {
		return 200, `{"results":[{"hotelId":1}]}`
	}}
	c := newTestClient(t, rec, Config{}, nil)

	res := c.Search(context.Background(), Query{CityID: 15470, CheckIn: "2025-06-01", CheckOut: "2025-06-02", Band: Band{80, 200}, Adults: 3})
	require.NotNil(t, res.Payload)
	assert.Nil(t, res.Err)
	assert.JSONEq(t, `{"results":[{"hotelId":1}]}`, string(res.Payload))

	require.Equal(t, 1, rec.count())
	assert.Equal(t, "/", rec.pathList()[0])
	h := rec.header(0)
	assert.Equal(t, "secret", h.Get("Authorization"))
	assert.Equal(t, "secret", h.Get("Apikey"))
	assert.Equal(t, "application/json", h.Get("Accept"))

	crit := rec.body(0)["criteria"].(map[string]any)
	assert.Equal(t, "2025-06-01", crit["checkInDate"])
	assert.Equal(t, "2025-06-02", crit["checkOutDate"])
	assert.Equal(t, 15470.0, crit["cityId"])

	add := additionalOf(t, rec.body(0))
	assert.Equal(t, "USD", add["currency"])
	assert.Equal(t, "en-us", add["language"])
	assert.Equal(t, 3.0, add["maxResult"])
	assert.Equal(t, "PriceAsc", add["sortBy"])
	assert.Equal(t, map[string]any{"minimum": 80.0, "maximum": 200.0}, add["dailyRate"])
	assert.Equal(t, map[string]any{"numberOfAdult": 3.0, "numberOfChildren": 0.0, "childrenAges": []any{}}, add["occupancy"])
}

func TestSearchRetriesWithBackoff(t *testing.T) {
	rec := &recorder{reply: func(n int, _ map[string]any) (int, string) {
		if n < 3 {
			return 503, `{"message":"busy"}`
		}
		return 200, `{"hotels":[{"id":9}]}`
	}}
	sl := &sleeps{}
	c := newTestClient(t, rec, Config{}, sl)

	res := c.Search(context.Background(), Query{CityID: 1, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	require.NotNil(t, res.Payload)
	assert.Equal(t, 3, rec.count())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sl.d)
}

func TestSearchRecordsErrorAfterRetries(t *testing.T) {
	rec := &recorder{reply: func(int, map[string]any) (int, string) {
		return 500, `{"error":"boom"}`
	}}
	sl := &sleeps{}
	c := newTestClient(t, rec, Config{MaxRetries: 4}, sl)

	res := c.Search(context.Background(), Query{CityID: 1, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	assert.Nil(t, res.Payload)
	require.NotNil(t, res.Err)
	assert.Equal(t, 500, res.Err.Status)
	assert.Equal(t, "", res.Err.Path)
	assert.Equal(t, 4, rec.count())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, sl.d)

	out, err := json.Marshal(res.Err)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":500,"body":{"error":"boom"},"path":""}`, string(out))
}

func TestSearchTriesEachPath(t *testing.T) {
	rec := &recorder{reply: func(_ int, _ map[string]any) (int, string) {
		return 404, strings.Repeat("x", 2500)
	}}
	c := newTestClient(t, rec, Config{SearchPath: "affiliate", MaxRetries: 1}, nil)

	res := c.Search(context.Background(), Query{CityID: 1})
	require.NotNil(t, res.Err)
	assert.Equal(t, []string{"/affiliate", "/hotels/search", "/search"}, rec.pathList())
	assert.Equal(t, "/search", res.Err.Path)
	body, ok := res.Err.Body.(string)
	require.True(t, ok)
	assert.Len(t, body, 2000)
}

func TestSearchFallbacks(t *testing.T) {
	rec := &recorder{reply: func(n int, _ map[string]any) (int, string) {
		switch n {
		case 1:
			return 200, `{"results":[]}`
		case 2:
			return 200, `{"error":{"id":911,"message":"No search result"}}`
		default:
			return 200, `{"properties":[{"id":1},{"id":2}]}`
		}
	}}
	c := newTestClient(t, rec, Config{}, nil)

	res := c.Search(context.Background(), Query{CityID: 7, CheckIn: "2025-03-01", CheckOut: "2025-03-02", Band: Band{20, 80}, Adults: 2})
	require.Equal(t, 3, rec.count())
	assert.JSONEq(t, `{"properties":[{"id":1},{"id":2}]}`, string(res.Payload))

	broad := additionalOf(t, rec.body(1))
	assert.NotContains(t, broad, "dailyRate")
	assert.Equal(t, 10.0, broad["maxResult"])
	assert.Equal(t, "Popularity", broad["sortBy"])

	minimal := rec.body(2)["criteria"].(map[string]any)
	assert.Equal(t, map[string]any{"checkInDate": "2025-03-01", "checkOutDate": "2025-03-02", "cityId": 7.0}, minimal)
}

func TestSearchFallbackStopsWhenFound(t *testing.T) {
	rec := &recorder{reply: func(n int, _ map[string]any) (int, string) {
		if n == 1 {
			return 200, `{"results":[]}`
		}
		return 200, `{"results":[{"id":1}]}`
	}}
	c := newTestClient(t, rec, Config{}, nil)

	res := c.Search(context.Background(), Query{CityID: 7})
	assert.Equal(t, 2, rec.count())
	assert.JSONEq(t, `{"results":[{"id":1}]}`, string(res.Payload))
}

func TestSearchEmptyResultIsStillStored(t *testing.T) {
	rec := &recorder{reply: func(n int, _ map[string]any) (int, string) {
		if n == 1 {
			return 200, `{"results":[]}`
		}
		return 500, `oops`
	}}
	c := newTestClient(t, rec, Config{}, nil)

	res := c.Search(context.Background(), Query{CityID: 7})
	assert.Equal(t, 3, rec.count())
	assert.JSONEq(t, `{"results":[]}`, string(res.Payload))
}

func TestSearchDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(`{"results":[{"id":3}]}`))
		_ = zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, logging.New(nil, "silent"),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	res := c.Search(context.Background(), Query{CityID: 1})
	assert.JSONEq(t, `{"results":[{"id":3}]}`, string(res.Payload))
}

func TestSharedLimiterSpacesCalls(t *testing.T) {
	rec := &recorder{reply: func(int, map[string]any) (int, string) {
		return 200, `{"results":[{"id":1}]}`
	}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Every(60*time.Millisecond), 1)
	log := logging.New(nil, "silent")
	a := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, log, WithLimiter(limiter))
	b := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, log, WithLimiter(limiter))

	start := time.Now()
	var wg sync.WaitGroup
	for _, c := range []*Client{a, b, a, b} {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			c.Search(context.Background(), Query{CityID: 1})
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 4, rec.count())
	assert.GreaterOrEqual(t, time.Since(start), 170*time.Millisecond)
}

// --- enrichment ---

func seedItinerary(t *testing.T, s store.ItineraryStore, id string, mutate func(it *domain.Itinerary)) {
	t.Helper()
	it, err := domain.BuildItinerary(domain.TripContext{Destination: "Paris", StartDate: "2025-06-01", EndDate: "2025-06-03"}, domain.Draft{Description: "test"})
	require.NoError(t, err)
	if mutate != nil {
		mutate(it)
	}
	doc, err := it.Encode()
	require.NoError(t, err)
	_, err = s.Write(context.Background(), id, doc)
	require.NoError(t, err)
}

func newEnricher(t *testing.T, rec *recorder) (*Enricher, store.ItineraryStore) {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir(), logging.New(nil, "silent"))
	require.NoError(t, err)
	c := newTestClient(t, rec, Config{}, nil)
	resolver := cities.FromMap(map[string]int{"Paris": 15470, "Lyon": 1})
	return NewEnricher(s, resolver, c, logging.New(nil, "silent")), s
}

func readBack(t *testing.T, s store.ItineraryStore, id string) *domain.Itinerary {
	t.Helper()
	doc, err := s.Read(context.Background(), id)
	require.NoError(t, err)
	it, err := domain.ParseItinerary([]byte(doc))
	require.NoError(t, err)
	return it
}

func TestEnrichFillsEachDay(t *testing.T) {
	rec := &recorder{reply: func(int, map[string]any) (int, string) {
		return 200, `{"results":[{"hotelId":11},{"hotelId":12}]}`
	}}
	e, s := newEnricher(t, rec)
	seedItinerary(t, s, "c1", func(it *domain.Itinerary) {
		it.Days[2].Location = "Atlantis"
	})

	people := 4
	out, report, err := e.Enrich(context.Background(), "c1", domain.TripContext{Budget: "600", NumberOfPeople: &people})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Days)
	assert.Equal(t, 2, report.Found)
	assert.Equal(t, 1, report.Unresolved)
	assert.Equal(t, Band{100, 300}, report.Band)

	it := readBack(t, s, "c1")
	assert.Equal(t, domain.AccommodationProvider, it.Days[0].Accommodation.Kind())
	assert.Equal(t, "Agoda response with 2 items", it.Days[1].Accommodation.Summary())
	assert.JSONEq(t, `{"agoda_error":{"reason":"no_city_id","city":"Atlantis"}}`, string(it.Days[2].Accommodation.Raw()))

	stored, err := s.Read(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, stored, out)

	// Stay windows run day to day, and party size flows into occupancy.
	require.Equal(t, 2, rec.count())
	first := rec.body(0)["criteria"].(map[string]any)
	assert.Equal(t, "2025-06-01", first["checkInDate"])
	assert.Equal(t, "2025-06-02", first["checkOutDate"])
	occ := additionalOf(t, rec.body(0))["occupancy"].(map[string]any)
	assert.Equal(t, 4.0, occ["numberOfAdult"])
}

func TestEnrichLastDayChecksOutNextDay(t *testing.T) {
	rec := &recorder{reply: func(int, map[string]any) (int, string) {
		return 200, `{"results":[{"id":1}]}`
	}}
	e, s := newEnricher(t, rec)
	seedItinerary(t, s, "c1", nil)

	_, _, err := e.Enrich(context.Background(), "c1", domain.TripContext{})
	require.NoError(t, err)
	last := rec.body(2)["criteria"].(map[string]any)
	assert.Equal(t, "2025-06-03", last["checkInDate"])
	assert.Equal(t, "2025-06-04", last["checkOutDate"])
}

func TestEnrichPreservesExistingOnFailure(t *testing.T) {
	rec := &recorder{reply: func(int, map[string]any) (int, string) {
		return 500, `{"error":"down"}`
	}}
	e, s := newEnricher(t, rec)
	seedItinerary(t, s, "c1", func(it *domain.Itinerary) {
		it.Days[0].Accommodation = domain.ProviderResponse(json.RawMessage(`{"results":[{"hotelId":5}]}`))
		it.Days[1].Accommodation = domain.Confirmed("Hotel Lutetia")
	})

	_, report, err := e.Enrich(context.Background(), "c1", domain.TripContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Failed)

	it := readBack(t, s, "c1")
	assert.JSONEq(t, `{"results":[{"hotelId":5}]}`, string(it.Days[0].Accommodation.Raw()))
	assert.Equal(t, []string{"Hotel Lutetia"}, it.Days[1].Accommodation.Names())
	require.True(t, it.Days[2].Accommodation.IsErrorMarker())
	assert.JSONEq(t, `{"agoda_error":{"status":500,"body":{"error":"down"},"path":""}}`, string(it.Days[2].Accommodation.Raw()))
}

func TestEnrichTwiceKeepsData(t *testing.T) {
	rec := &recorder{reply: func(n int, _ map[string]any) (int, string) {
		if n <= 3 {
			return 200, `{"results":[{"hotelId":1}]}`
		}
		return 503, `unavailable`
	}}
	e, s := newEnricher(t, rec)
	seedItinerary(t, s, "c1", nil)

	_, _, err := e.Enrich(context.Background(), "c1", domain.TripContext{})
	require.NoError(t, err)
	first := readBack(t, s, "c1")

	_, _, err = e.Enrich(context.Background(), "c1", domain.TripContext{})
	require.NoError(t, err)
	second := readBack(t, s, "c1")

	assert.Greater(t, rec.count(), 3)
	for i := range first.Days {
		assert.JSONEq(t, string(first.Days[i].Accommodation.Raw()), string(second.Days[i].Accommodation.Raw()))
	}
}

func TestEnrichUnresolvedKeepsNames(t *testing.T) {
	rec := &recorder{reply: func(int, map[string]any) (int, string) { return 200, `{}` }}
	e, s := newEnricher(t, rec)
	seedItinerary(t, s, "c1", func(it *domain.Itinerary) {
		for i := range it.Days {
			it.Days[i].Location = ""
		}
		it.Destination = "Nowhere"
		it.Days[0].Accommodation = domain.Confirmed("Guesthouse")
	})

	_, report, err := e.Enrich(context.Background(), "c1", domain.TripContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Unresolved)
	assert.Equal(t, 0, rec.count())

	it := readBack(t, s, "c1")
	assert.Equal(t, []string{"Guesthouse"}, it.Days[0].Accommodation.Names())
	assert.JSONEq(t, `{"agoda_error":{"reason":"no_city_id","city":"Nowhere"}}`, string(it.Days[1].Accommodation.Raw()))
}

func TestEnrichFailsFastWhenMisconfigured(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), logging.New(nil, "silent"))
	require.NoError(t, err)
	c := NewClient(Config{}, logging.New(nil, "silent"))
	e := NewEnricher(s, cities.FromMap(nil), c, logging.New(nil, "silent"))

	_, _, err = e.Enrich(context.Background(), "missing", domain.TripContext{})
	assert.True(t, domain.Is(err, domain.ErrMisconfigured))
}

func TestEnrichMissingItinerary(t *testing.T) {
	e, _ := newEnricher(t, &recorder{reply: func(int, map[string]any) (int, string) { return 200, `{}` }})
	_, _, err := e.Enrich(context.Background(), "ghost", domain.TripContext{})
	assert.True(t, domain.Is(err, domain.ErrNotFound))

	_, _, err = e.Enrich(context.Background(), "", domain.TripContext{})
	assert.True(t, domain.Is(err, domain.ErrMissingContext))
}

// cancellingSearcher answers the first search and then cancels the run.
type cancellingSearcher struct {
	cancel context.CancelFunc
	calls  int
}

func (f *cancellingSearcher) Configured() error { return nil }

func (f *cancellingSearcher) Search(ctx context.Context, _ Query) Result {
	f.calls++
	if f.calls > 1 {
		return Result{}
	}
	defer f.cancel()
	return Result{Payload: json.RawMessage(`{"results":[{"hotelId":7}]}`)}
}

func TestEnrichCancelledKeepsFinishedDays(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), logging.New(nil, "silent"))
	require.NoError(t, err)
	seedItinerary(t, s, "c1", func(it *domain.Itinerary) {
		it.Days[0].Accommodation = domain.Confirmed("Hotel Lutetia")
		it.Days[1].Accommodation = domain.Confirmed("Le Meurice")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	search := &cancellingSearcher{cancel: cancel}
	e := NewEnricher(s, cities.FromMap(map[string]int{"Paris": 15470}), search, logging.New(nil, "silent"))

	_, report, err := e.Enrich(ctx, "c1", domain.TripContext{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, search.calls)
	assert.Equal(t, 1, report.Found)

	it := readBack(t, s, "c1")
	assert.Equal(t, domain.AccommodationProvider, it.Days[0].Accommodation.Kind())
	assert.JSONEq(t, `{"results":[{"hotelId":7}]}`, string(it.Days[0].Accommodation.Raw()))
	assert.Equal(t, []string{"Le Meurice"}, it.Days[1].Accommodation.Names())
	assert.True(t, it.Days[2].Accommodation.IsEmpty())
}

// interruptedSearcher cancels while its single search is in flight.
type interruptedSearcher struct{ cancel context.CancelFunc }

func (f *interruptedSearcher) Configured() error { return nil }

func (f *interruptedSearcher) Search(context.Context, Query) Result {
	f.cancel()
	return Result{Err: &RequestError{Status: 0, Body: "context canceled"}}
}

func TestEnrichInterruptedSearchLeavesDayUntouched(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), logging.New(nil, "silent"))
	require.NoError(t, err)
	seedItinerary(t, s, "c1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := NewEnricher(s, cities.FromMap(map[string]int{"Paris": 15470}), &interruptedSearcher{cancel: cancel}, logging.New(nil, "silent"))

	_, report, err := e.Enrich(ctx, "c1", domain.TripContext{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Failed)

	it := readBack(t, s, "c1")
	assert.True(t, it.Days[0].Accommodation.IsEmpty())
}

func TestEnrichKeepsDocumentKeyOrder(t *testing.T) {
	e, s := newEnricher(t, &recorder{reply: func(int, map[string]any) (int, string) {
		return 200, `{"results":[{"hotelId":1}]}`
	}})
	doc := `{"trip_name":"Spring","destination":"Paris","description":"x","start_date":"2025-06-01","end_date":"2025-06-01","duration_days":1,` +
		`"itinerary":[{"notes":"","location":"Paris","date":"2025-06-01","day_number":1,"activities":[],"transportation":"","accommodation":""}],` +
		`"budget":"low"}`
	_, err := s.Write(context.Background(), "c1", doc)
	require.NoError(t, err)

	out, _, err := e.Enrich(context.Background(), "c1", domain.TripContext{})
	require.NoError(t, err)

	inOrder := func(keys ...string) {
		t.Helper()
		last := -1
		for _, k := range keys {
			at := strings.Index(out, `"`+k+`"`)
			require.Greater(t, at, last, "%s out of order in %s", k, out)
			last = at
		}
	}
	inOrder("trip_name", "destination", "description", "itinerary", "notes", "location", "date", "accommodation", "budget")
	assert.Contains(t, out, "\n  \"trip_name\"")
}

func TestObjectAppendsNewKeys(t *testing.T) {
	var o object
	require.NoError(t, json.Unmarshal([]byte(`{"b":1,"a":2,"b":3}`), &o))
	o.set("c", json.RawMessage(`true`))
	o.set("a", json.RawMessage(`"x"`))
	out, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":"x","c":true}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &o))
	assert.Error(t, json.Unmarshal([]byte(`null`), &o))
}
