package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// authEnvelope matches the api package's flat error shape. Defined here
// rather than imported to avoid a circular dependency.
type authEnvelope struct {
	Error string `json:"error"`
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(authEnvelope{Error: msg}) //nolint:errcheck
}

// Auth failure modes. Distinguished so the handler layer can map each to its
// own HTTP status: a missing credential is not the same as a wrong one, and a
// server with no secret configured must never fall open.
var (
	ErrNoSecret           = errors.New("webhook secret not configured")
	ErrMissingCredentials = errors.New("missing bearer token")
	ErrInvalidCredentials = errors.New("invalid bearer token")
)

// CheckBearer validates an Authorization header value against the configured
// shared secret. The comparison is constant time.
func CheckBearer(secret, header string) error {
	if secret == "" {
		return ErrNoSecret
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return ErrMissingCredentials
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrInvalidCredentials
	}

	return nil
}

// RequireBearer returns middleware that gates requests on a shared bearer
// secret. Rejections are logged with the failure mode but never the
// presented token.
func RequireBearer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := CheckBearer(secret, r.Header.Get("Authorization")); err != nil {
				status := authStatus(err)
				slog.Warn("webhook auth rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"reason", err,
					"status", status,
				)
				writeAuthError(w, status, authMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// authStatus maps an auth failure to its HTTP status code.
func authStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoSecret):
		return http.StatusInternalServerError
	case errors.Is(err, ErrMissingCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// authMessage returns the client-facing message for an auth failure. The
// unconfigured-secret case deliberately reveals nothing about server state.
func authMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSecret):
		return "server configuration error"
	case errors.Is(err, ErrMissingCredentials):
		return "authorization required"
	default:
		return "invalid credentials"
	}
}
