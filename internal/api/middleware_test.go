package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func authProbe() (http.Handler, *uuid.UUID) {
	var captured uuid.UUID
	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := GetAuthUserID(r.Context()); ok {
			captured = id
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &captured
}

func TestAuthMiddleware_AcceptsValidToken(t *testing.T) {
	userID := uuid.New()
	token := signedToken(t, testSecret, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	handler, captured := authProbe()
	req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if *captured != userID {
		t.Fatalf("expected user id %s on context, got %s", userID, *captured)
	}
}

func TestAuthMiddleware_RejectsBadRequests(t *testing.T) {
	expired := signedToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signedToken(t, "other-secret", jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	badSubject := signedToken(t, testSecret, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not a bearer token", header: "Basic abc"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong signing key", header: "Bearer " + wrongKey},
		{name: "non-uuid subject", header: "Bearer " + badSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := authProbe()
			req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestInternalAuthMiddleware(t *testing.T) {
	handler := InternalAuthMiddleware("internal-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/internal/users", nil)
	req.Header.Set("X-Internal-Api-Key", "internal-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with matching key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/users", nil)
	req.Header.Set("X-Internal-Api-Key", "wrong-key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", rec.Code)
	}
}

func TestInternalAuthMiddleware_UnconfiguredKeyDisablesEndpoints(t *testing.T) {
	handler := InternalAuthMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/internal/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when no key configured, got %d", rec.Code)
	}
}
