package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
)

func TestSearchFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "kyoto temples", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		assert.Equal(t, "jp", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(`{"query":{"original":"kyoto temples"},"web":{"results":[
			{"title":"Kinkaku-ji","url":"https://example.com/k","description":"Golden pavilion","age":"2 days ago"},
			{"title":"Fushimi Inari","url":"https://example.com/f","description":"Torii gates"}]}}`))
	}))
	defer srv.Close()

	b := NewBrave("token", "jp", 3, logging.New(nil, "silent"), WithEndpoint(srv.URL))
	out, err := b.Search(context.Background(), "  kyoto temples ")
	require.NoError(t, err)

	want := "Web search results for: kyoto temples\n\n" +
		"1. Kinkaku-ji\n   URL: https://example.com/k\n   Age: 2 days ago\n   Golden pavilion\n\n" +
		"2. Fushimi Inari\n   URL: https://example.com/f\n   Torii gates\n\n"
	assert.Equal(t, want, out)
}

func TestSearchNoResults(t *testing.T) {
	assert.Equal(t, "Web search results for: q\n\nNo web results found.\n", Format("q", nil))
}

func TestSearchErrors(t *testing.T) {
	_, err := NewBrave("", "", 0, logging.New(nil, "silent")).Search(context.Background(), "x")
	assert.True(t, domain.Is(err, domain.ErrMisconfigured))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	_, err = NewBrave("k", "", 0, logging.New(nil, "silent"), WithEndpoint(srv.URL)).Search(context.Background(), "x")
	assert.True(t, domain.Is(err, domain.ErrExternalService))
	assert.Contains(t, err.Error(), "429")

	_, err = NewBrave("k", "", 0, logging.New(nil, "silent"), WithEndpoint(srv.URL)).Search(context.Background(), "  ")
	assert.Error(t, err)
}
