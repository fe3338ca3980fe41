package gateway

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/wayfarer/internal/config"
	"github.com/soyeahso/wayfarer/internal/hooks"
)

func TestServeLifecycle(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	hm := hooks.NewManager(testLog())
	for _, ev := range []string{hooks.EventGatewayStart, hooks.EventGatewayStop} {
		hm.On(ev, "test", func(_ context.Context, p hooks.Payload) error {
			mu.Lock()
			events = append(events, p.Event)
			mu.Unlock()
			return nil
		})
	}

	srv := New(config.GatewayConfig{}, newFakePlanner(), testLog(), WithHooks(hm))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{hooks.EventGatewayStart, hooks.EventGatewayStop}, events)
}

func TestFailedHandshakesAreRateLimited(t *testing.T) {
	srv, ts := testServer(t, newFakePlanner(), config.GatewayConfig{Auth: config.GatewayAuth{Token: "secret"}})

	// the test client always dials from 127.0.0.1
	for range authRateMaxFails {
		srv.authLimiter.recordFailure("127.0.0.1:1234")
	}

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestAuthRateLimiter(t *testing.T) {
	l := newAuthRateLimiter()
	for range authRateMaxFails - 1 {
		l.recordFailure("10.0.0.1:5000")
	}
	assert.True(t, l.allow("10.0.0.1:6000"))

	l.recordFailure("10.0.0.1:7000")
	assert.False(t, l.allow("10.0.0.1:8000"))
	assert.True(t, l.allow("10.0.0.2:5000"))

	// expired failures no longer count
	l.mu.Lock()
	for i := range l.failures["10.0.0.1"] {
		l.failures["10.0.0.1"][i] = time.Now().Add(-2 * authRateWindow)
	}
	l.mu.Unlock()
	assert.True(t, l.allow("10.0.0.1:8000"))
	l.mu.Lock()
	_, tracked := l.failures["10.0.0.1"]
	l.mu.Unlock()
	assert.False(t, tracked)
}

func TestAuthRateLimiterEvictsOldestHost(t *testing.T) {
	l := newAuthRateLimiter()
	l.failures["old"] = []time.Time{time.Now().Add(-time.Minute)}
	for i := range authRateMaxHosts - 1 {
		l.failures[net.IPv4(10, 1, byte(i>>8), byte(i)).String()] = []time.Time{time.Now()}
	}
	require.Len(t, l.failures, authRateMaxHosts)

	l.recordFailure("192.168.1.1:80")
	assert.Len(t, l.failures, authRateMaxHosts)
	assert.NotContains(t, l.failures, "old")
	assert.Contains(t, l.failures, "192.168.1.1")
}

func TestResolveAuth(t *testing.T) {
	assert.Equal(t, ResolvedAuth{Mode: AuthNone}, ResolveAuth(config.GatewayAuth{}))
	assert.Equal(t, ResolvedAuth{Mode: AuthNone}, ResolveAuth(config.GatewayAuth{Token: "  "}))
	assert.Equal(t, ResolvedAuth{Mode: AuthToken, Token: "abc"}, ResolveAuth(config.GatewayAuth{Token: "abc"}))
}

func TestAuthorize(t *testing.T) {
	open := ResolvedAuth{Mode: AuthNone}
	assert.Equal(t, AuthResult{OK: true, Method: AuthNone}, Authorize(open, nil))

	locked := ResolvedAuth{Mode: AuthToken, Token: "abc"}
	assert.Equal(t, AuthResult{Reason: "token required"}, Authorize(locked, nil))
	assert.Equal(t, AuthResult{Reason: "token required"}, Authorize(locked, &ConnectAuth{}))
	assert.Equal(t, AuthResult{Reason: "token_mismatch"}, Authorize(locked, &ConnectAuth{Token: "abd"}))
	assert.Equal(t, AuthResult{OK: true, Method: AuthToken}, Authorize(locked, &ConnectAuth{Token: "abc"}))
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"bearer  abc ":     "abc",
		"Basic dXNlcjpwdw": "",
		"Bearer":           "",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(r), header)
	}
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("secret", "secret"))
	assert.True(t, safeEqual("", ""))
	assert.False(t, safeEqual("secret", "secreT"))
	assert.False(t, safeEqual("short", "longer-secret"))
	assert.False(t, safeEqual("", "secret"))
}

func TestClientRegistry(t *testing.T) {
	reg := NewClientRegistry(testLog())
	assert.Equal(t, 0, reg.Count())

	reg.Add(&Client{ConnID: "conn-1", Info: ClientInfo{ID: "cli"}})
	reg.Add(&Client{ConnID: "conn-2"})
	assert.Equal(t, 2, reg.Count())

	got, ok := reg.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, "cli", got.Info.ID)

	reg.Remove("conn-1")
	_, ok = reg.Get("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Count())
}

func TestClientSendAfterClose(t *testing.T) {
	_, ts := testServer(t, newFakePlanner(), config.GatewayConfig{})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)

	c := NewClient(conn, ClientInfo{ID: "x"}, AuthResult{OK: true}, testLog())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(Frame{Type: FrameTypeEvent}), ErrClientClosed)
}
