package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tunewish/tunewish-api/internal/pkg/jwt"
)

func TestAuthMiddleware(t *testing.T) {
	jwtSvc := jwt.NewService("auth-test-secret", time.Hour)
	expiredSvc := jwt.NewService("auth-test-secret", -time.Hour)

	userID := uuid.New()
	token, err := jwtSvc.GenerateAccessToken(userID, "dina@test.com")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	expiredToken, err := expiredSvc.GenerateAccessToken(userID, "dina@test.com")
	if err != nil {
		t.Fatalf("generate expired token failed: %v", err)
	}

	var gotUserID uuid.UUID
	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotEmail = GetEmail(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(jwtSvc)(next)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"no token part", "Bearer", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = uuid.Nil
			gotEmail = ""

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantCode == http.StatusOK {
				if gotUserID != userID {
					t.Fatalf("expected user id %s in context, got %s", userID, gotUserID)
				}
				if gotEmail != "dina@test.com" {
					t.Fatalf("expected email in context, got %q", gotEmail)
				}
			}
		})
	}
}

func TestGetUserIDEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetUserID(req.Context()); id != uuid.Nil {
		t.Fatalf("expected uuid.Nil for unauthenticated context, got %s", id)
	}
	if email := GetEmail(req.Context()); email != "" {
		t.Fatalf("expected empty email, got %q", email)
	}
}
