// ABOUTME: Tests for the Bearer secret middleware
// ABOUTME: Covers the rejection matrix, the success path, and secret rotation

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		secret  string
		wantErr error
	}{
		{"valid", "Bearer " + testSecret, testSecret, nil},
		{"missing header", "", testSecret, errMissingHeader},
		{"wrong scheme", "Basic " + testSecret, testSecret, errBadFormat},
		{"lowercase scheme", "bearer " + testSecret, testSecret, errBadFormat},
		{"empty token", "Bearer ", testSecret, errEmptyToken},
		{"wrong token", "Bearer nope", testSecret, errMismatch},
		{"prefix of secret", "Bearer " + testSecret[:8], testSecret, errMismatch},
		{"no secret issued", "Bearer " + testSecret, "", errNoSecret},
		{"empty token and no secret", "Bearer ", "", errEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			err := Verify(req, SecretFunc(func() string { return tt.secret }))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerify_NilSource(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	assert.True(t, errors.Is(Verify(req, nil), ErrUnauthorized))
}

func TestMiddleware_Rejects(t *testing.T) {
	called := false
	h := Middleware(SecretFunc(func() string { return testSecret }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/commands", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid token", body["detail"])
}

func TestMiddleware_AttachesSession(t *testing.T) {
	var got *Session
	h := Middleware(SecretFunc(func() string { return testSecret }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/verify", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, req.RemoteAddr, got.RemoteAddr)
	assert.False(t, got.Authenticated.IsZero())
}

func TestMiddleware_SecretRotation(t *testing.T) {
	current := "first-secret"
	h := Middleware(SecretFunc(func() string { return current }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/verify", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("first-secret"))
	current = "second-secret"
	assert.Equal(t, http.StatusUnauthorized, do("first-secret"), "old secret is revoked on restart")
	assert.Equal(t, http.StatusNoContent, do("second-secret"))
	current = ""
	assert.Equal(t, http.StatusUnauthorized, do("second-secret"), "no secret while stopped")
}

func TestFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, FromContext(req.Context()))
}
