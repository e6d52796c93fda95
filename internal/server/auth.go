package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/coursebot-go/internal/logging"
)

// authRealm names the protected API in Bearer challenges.
const authRealm = "coursebot"

// authMiddleware guards next with a static Bearer token. An empty apiKey
// disables the check; New logs that once at startup. Tokens are compared in
// constant time and never logged.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		switch {
		case !ok:
			logging.FromContext(r.Context()).Warn("auth: missing bearer token")
			challenge(w, "", "authorization required")
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			logging.FromContext(r.Context()).Warn("auth: invalid token", slog.Bool("token_present", true))
			challenge(w, "invalid_token", "invalid token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// challenge writes a 401 with an RFC 6750 WWW-Authenticate header.
func challenge(w http.ResponseWriter, code, msg string) {
	value := `Bearer realm="` + authRealm + `"`
	if code != "" {
		value += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", value)
	http.Error(w, msg, http.StatusUnauthorized)
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
