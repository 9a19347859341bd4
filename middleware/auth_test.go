package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// mintMockClerkJWT builds a Clerk-shaped HS256 token. It carries valid claims
// but is signed with a throwaway key, so verification against real Clerk keys
// must reject it.
func mintMockClerkJWT(t *testing.T, clerkID string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-key-for-testing-only"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestClerkAuthMiddlewareRejects(t *testing.T) {
	handler := ClerkAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for an unauthenticated request")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Token abc123"},
		{"unverifiable token", fmt.Sprintf("Bearer %s", mintMockClerkJWT(t, "user_test123"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestGetClerkID(t *testing.T) {
	if _, ok := GetClerkID(context.Background()); ok {
		t.Error("empty context must not yield a clerk ID")
	}

	ctx := context.WithValue(context.Background(), ClerkIDKey, "user_abc")
	got, ok := GetClerkID(ctx)
	if !ok || got != "user_abc" {
		t.Errorf("GetClerkID = (%q, %v), want (user_abc, true)", got, ok)
	}
}
