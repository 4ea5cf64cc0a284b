package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drivehub/auth-service/internal/auth"
	appctx "github.com/drivehub/auth-service/internal/context"
	"github.com/google/uuid"
)

// stubVerifier implements SessionVerifier with canned responses per token
type stubVerifier struct {
	users  map[string]*auth.UserInfo
	errs   map[string]error
	called []string
}

func (s *stubVerifier) VerifySession(ctx context.Context, token string) (*auth.UserInfo, error) {
	s.called = append(s.called, token)
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, auth.ErrSessionNotFound
}

func okHandler(t *testing.T, wantUserID, wantUsername string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := appctx.ExtractUserID(r.Context())
		if !ok || userID != wantUserID {
			t.Errorf("user ID in context = %q (ok=%v), want %q", userID, ok, wantUserID)
		}
		username, ok := appctx.ExtractUsername(r.Context())
		if !ok || username != wantUsername {
			t.Errorf("username in context = %q (ok=%v), want %q", username, ok, wantUsername)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	verifier := &stubVerifier{
		users: map[string]*auth.UserInfo{
			"good-token": {ID: userID, Username: "alice", Email: "alice@example.com"},
		},
	}
	mw := NewAuthMiddleware(verifier)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	mw.Authenticate(okHandler(t, userID.String(), "alice")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(verifier.called) != 1 || verifier.called[0] != "good-token" {
		t.Errorf("verifier called with %v", verifier.called)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	verifier := &stubVerifier{
		errs: map[string]error{
			"expired-token": auth.ErrSessionExpired,
			"unknown-token": auth.ErrSessionNotFound,
			"broken-store":  errors.New("connection refused"),
		},
	}
	mw := NewAuthMiddleware(verifier)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", http.StatusUnauthorized, auth.CodeAuthTokenMissing},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, auth.CodeAuthTokenInvalid},
		{"empty token", "Bearer ", http.StatusUnauthorized, auth.CodeAuthTokenInvalid},
		{"expired session", "Bearer expired-token", http.StatusUnauthorized, auth.CodeSessionExpired},
		{"unknown session", "Bearer unknown-token", http.StatusUnauthorized, auth.CodeSessionNotFound},
		{"store failure", "Bearer broken-store", http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler reached on rejected request")
			})
			mw.Authenticate(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if resp.Success {
				t.Error("error response marked success")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_BearerCaseInsensitive(t *testing.T) {
	userID := uuid.New()
	verifier := &stubVerifier{
		users: map[string]*auth.UserInfo{
			"good-token": {ID: userID, Username: "alice"},
		},
	}
	mw := NewAuthMiddleware(verifier)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer good-token")
	rec := httptest.NewRecorder()

	mw.Authenticate(okHandler(t, userID.String(), "alice")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
