package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/soyeahso/wayfarer/internal/config"
)

// Auth modes.
const (
	AuthNone  = "none"
	AuthToken = "token"
)

// AuthResult is the outcome of checking a client's credentials.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth is the gateway's effective auth setting. The loader has
// already applied WAYFARER_GATEWAY_TOKEN.
type ResolvedAuth struct {
	Mode  string
	Token string
}

// ResolveAuth derives the auth mode from config: token auth when a token
// is set, open otherwise.
func ResolveAuth(cfg config.GatewayAuth) ResolvedAuth {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return ResolvedAuth{Mode: AuthNone}
	}
	return ResolvedAuth{Mode: AuthToken, Token: token}
}

// Authorize checks connect credentials against the server setting.
func Authorize(server ResolvedAuth, client *ConnectAuth) AuthResult {
	if server.Mode == AuthNone {
		return AuthResult{OK: true, Method: AuthNone}
	}
	if client == nil || client.Token == "" {
		return AuthResult{Reason: "token required"}
	}
	if !safeEqual(client.Token, server.Token) {
		return AuthResult{Reason: "token_mismatch"}
	}
	return AuthResult{OK: true, Method: AuthToken}
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireToken rejects HTTP requests without the configured bearer token.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := Authorize(s.auth, &ConnectAuth{Token: bearerToken(r)})
		if !res.OK {
			s.log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Str("reason", res.Reason).Msg("unauthorized request")
			w.Header().Set("WWW-Authenticate", `Bearer realm="wayfarer"`)
			writeDetail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// safeEqual compares secrets in constant time, including their lengths.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
