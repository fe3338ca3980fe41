// Package gateway is the network front end: a JSON HTTP API on chi and a
// WebSocket RPC channel, both driving the trip planner.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/wayfarer/internal/config"
	"github.com/soyeahso/wayfarer/internal/hooks"
	"github.com/soyeahso/wayfarer/internal/lodging"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/metrics"
	"github.com/soyeahso/wayfarer/internal/planner"
	"github.com/soyeahso/wayfarer/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

// Events pushed to WebSocket clients.
const (
	EventChallenge        = "connect.challenge"
	EventItineraryUpdated = "itinerary.updated"
)

const (
	maxPayload       = 4 << 20
	handshakeTimeout = 10 * time.Second
)

// Planner is the orchestrator surface the gateway serves.
type Planner interface {
	HandleTurn(ctx context.Context, conversationID, message string) (*planner.TurnResult, error)
	Itinerary(ctx context.Context, conversationID string) (string, error)
	Enrich(ctx context.Context, conversationID string) (string, *lodging.Report, error)
	Conversations() int
}

// Server is the HTTP + WebSocket gateway.
type Server struct {
	cfg      config.GatewayConfig
	planner  Planner
	auth     ResolvedAuth
	log      *logging.Logger
	clients  *ClientRegistry
	handlers map[string]RequestHandler
	hooks    *hooks.Manager
	eventSeq atomic.Int64

	upgrader    websocket.Upgrader
	authLimiter *authRateLimiter
	httpServer  *http.Server
	addr        atomic.Value // string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithHooks emits gateway lifecycle events on hm.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) { s.hooks = hm }
}

// New creates a gateway serving p.
func New(cfg config.GatewayConfig, p Planner, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:         cfg,
		planner:     p,
		auth:        ResolveAuth(cfg.Auth),
		log:         log.Sub("gateway"),
		clients:     NewClientRegistry(log.Sub("clients")),
		handlers:    make(map[string]RequestHandler),
		authLimiter: newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRPCHandlers()
	return s
}

// checkOrigin accepts requests without an Origin header and origins on
// the allow list.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Handler returns the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(s.log))
	r.Use(newCORS(s.cfg.AllowedOrigins).Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	if s.cfg.MetricsEnabled() {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/chat", s.handleChat)
		r.Get("/itineraries/{id}", s.handleGetItinerary)
		r.Post("/itineraries/{id}/populate-accommodations", s.handlePopulate)
	})

	r.NotFound(handleNotFound)
	return r
}

// Handle registers an RPC method.
func (s *Server) Handle(method string, h RequestHandler) {
	s.handlers[method] = h
}

// Methods returns the registered RPC methods, sorted.
func (s *Server) Methods() []string {
	out := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// ListenAddr computes the listen address from config.
func ListenAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return net.JoinHostPort(host, fmt.Sprint(cfg.Port))
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ListenAddr(s.cfg))
	if err != nil {
		return fmt.Errorf("listening on %s: %w", ListenAddr(s.cfg), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	addr := ln.Addr().String()
	s.addr.Store(addr)
	go s.authLimiter.run(ctx)

	s.log.Info().
		Str("addr", addr).
		Str("auth", s.auth.Mode).
		Strs("methods", s.Methods()).
		Bool("metrics", s.cfg.MetricsEnabled()).
		Msg("gateway listening")
	s.hooks.Emit(ctx, hooks.EventGatewayStart, map[string]any{"addr": addr})

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway")
		s.hooks.Emit(context.Background(), hooks.EventGatewayStop, map[string]any{"addr": addr})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("gateway shutdown")
		}
	}()

	err := s.httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

// Addr returns the bound address once serving, or "".
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("too many failed handshakes")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxPayload)

	client, err := s.handshake(conn)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("handshake failed")
		s.authLimiter.recordFailure(r.RemoteAddr)
		_ = conn.Close()
		return
	}

	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		_ = client.Close()
	}()
	s.readLoop(r.Context(), client)
}

// handshake sends a challenge, reads the connect request, checks its
// credentials and answers hello-ok.
func (s *Server) handshake(conn *websocket.Conn) (*Client, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	challenge, err := NewEvent(EventChallenge, map[string]any{
		"nonce": uuid.NewString(),
		"ts":    time.Now().UnixMilli(),
	}, 0)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteJSON(challenge); err != nil {
		return nil, fmt.Errorf("sending challenge: %w", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading connect: %w", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("parsing connect frame: %w", err)
	}
	if frame.Type != FrameTypeRequest || frame.Method != "connect" {
		rejectAndClose(conn, frame.ID, CodeProtocol, "expected connect request")
		return nil, fmt.Errorf("expected connect request, got type=%q method=%q", frame.Type, frame.Method)
	}

	var params ConnectParams
	if len(frame.Params) > 0 {
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			rejectAndClose(conn, frame.ID, CodeInvalidParams, "invalid connect params")
			return nil, fmt.Errorf("parsing connect params: %w", err)
		}
	}
	if params.MinProtocol > ProtocolVersion {
		rejectAndClose(conn, frame.ID, CodeProtocol, fmt.Sprintf("protocol %d not supported", params.MinProtocol))
		return nil, fmt.Errorf("client needs protocol >= %d", params.MinProtocol)
	}

	auth := Authorize(s.auth, params.Auth)
	if !auth.OK {
		rejectAndClose(conn, frame.ID, CodeUnauthorized, auth.Reason)
		return nil, fmt.Errorf("auth failed: %s", auth.Reason)
	}
	_ = conn.SetReadDeadline(time.Time{})

	client := NewClient(conn, params.Client, auth, s.log.Sub("ws"))
	hello := HelloOK{
		Protocol: ProtocolVersion,
		Server: ServerInfo{
			Version: version.Version,
			Commit:  version.Commit,
			ConnID:  client.ConnID,
		},
		Features: Features{
			Methods: s.Methods(),
			Events:  []string{EventChallenge, EventItineraryUpdated},
		},
		Policy: ServerPolicy{MaxPayload: maxPayload, TickIntervalMs: 30000},
	}
	resp, err := NewResponse(frame.ID, hello)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteJSON(resp); err != nil {
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	s.log.Info().
		Str("connId", client.ConnID).
		Str("clientId", params.Client.ID).
		Str("authMethod", auth.Method).
		Msg("client authenticated")
	return client, nil
}

func (s *Server) readLoop(ctx context.Context, client *Client) {
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				client.log.Debug().Msg("client closed connection")
			} else {
				client.log.Debug().Err(err).Msg("read ended")
			}
			return
		}
		if frame.Type != FrameTypeRequest {
			continue
		}
		s.dispatch(ctx, client, frame)
	}
}

func (s *Server) dispatch(ctx context.Context, client *Client, frame Frame) {
	h, ok := s.handlers[frame.Method]
	if !ok {
		_ = client.RespondError(frame.ID, ErrorShape{
			Code:    CodeMethodNotFound,
			Message: "unknown method: " + frame.Method,
		})
		return
	}
	h(&RequestContext{Ctx: ctx, Client: client, Frame: frame, Server: s})
}

func rejectAndClose(conn *websocket.Conn, id, code, msg string) {
	_ = conn.WriteJSON(NewErrorResponse(id, ErrorShape{Code: code, Message: msg}))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg))
}

// authRateLimiter counts failed handshakes per host inside a sliding
// window.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
	authRateMaxHosts = 10000
)

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{failures: make(map[string][]time.Time)}
}

func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}

// recent returns the failures of host still inside the window. Callers
// hold mu.
func (l *authRateLimiter) recent(host string, now time.Time) []time.Time {
	cutoff := now.Add(-authRateWindow)
	kept := l.failures[host][:0]
	for _, t := range l.failures[host] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, host)
		return nil
	}
	l.failures[host] = kept
	return kept
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(hostOf(remoteAddr), time.Now())) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := hostOf(remoteAddr)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, tracked := l.failures[host]; !tracked && len(l.failures) >= authRateMaxHosts {
		l.evictOldest()
	}
	l.failures[host] = append(l.failures[host], time.Now())
}

func (l *authRateLimiter) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for host, times := range l.failures {
		if len(times) > 0 && (oldest == "" || times[0].Before(at)) {
			oldest, at = host, times[0]
		}
	}
	delete(l.failures, oldest)
}

// run prunes expired entries every minute until ctx ends.
func (l *authRateLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for host := range l.failures {
				l.recent(host, now)
			}
			l.mu.Unlock()
		}
	}
}
