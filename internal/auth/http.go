// ABOUTME: HTTP middleware for Bearer secret authentication on admin API endpoints
// ABOUTME: Compares the presented token to the current session secret in constant time

package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned by Verify for every rejected request.
var ErrUnauthorized = errors.New("unauthorized")

// Failure reasons wrapped by ErrUnauthorized.
var (
	errMissingHeader = errors.New("missing authorization header")
	errBadFormat     = errors.New("invalid authorization header format")
	errEmptyToken    = errors.New("empty token")
	errNoSecret      = errors.New("no session secret issued")
	errMismatch      = errors.New("invalid token")
)

// SecretSource yields the current session secret, or "" when none is issued.
type SecretSource interface {
	Secret() string
}

// SecretFunc adapts a function to SecretSource.
type SecretFunc func() string

// Secret calls f.
func (f SecretFunc) Secret() string { return f() }

// unauthorized joins ErrUnauthorized with the specific reason.
type unauthorized struct{ reason error }

func (e *unauthorized) Error() string        { return e.reason.Error() }
func (e *unauthorized) Is(target error) bool { return target == ErrUnauthorized }
func (e *unauthorized) Unwrap() error        { return e.reason }

// extractBearerToken extracts a bearer token from the Authorization header.
func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errMissingHeader
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errBadFormat
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// Verify checks r's Bearer token against src. Any failure satisfies
// errors.Is(err, ErrUnauthorized).
func Verify(r *http.Request, src SecretSource) error {
	token, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return &unauthorized{reason: err}
	}

	secret := ""
	if src != nil {
		secret = src.Secret()
	}
	if secret == "" {
		return &unauthorized{reason: errNoSecret}
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return &unauthorized{reason: errMismatch}
	}
	return nil
}

// Middleware rejects requests that fail Verify with 401 and attaches a Session
// to the context of those that pass.
func Middleware(src SecretSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Verify(r, src); err != nil {
				writeUnauthorized(w, err)
				return
			}

			sess := &Session{RemoteAddr: r.RemoteAddr, Authenticated: time.Now()}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()})
}
