package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/drivehub/auth-service/internal/auth"
	appctx "github.com/drivehub/auth-service/internal/context"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionVerifier resolves a session token to its user
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*auth.UserInfo, error)
}

// AuthMiddleware guards protected routes by verifying the opaque session
// token from the Authorization header against the session store.
type AuthMiddleware struct {
	verifier SessionVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware instance
func NewAuthMiddleware(verifier SessionVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate validates the session token and injects the user identity
// into the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenMissing, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenInvalid, "Invalid authorization header format")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			m.writeError(w, http.StatusUnauthorized, auth.CodeAuthTokenInvalid, "Token is empty")
			return
		}

		user, err := m.verifier.VerifySession(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionExpired):
				m.writeError(w, http.StatusUnauthorized, auth.CodeSessionExpired, "Session has expired")
			case errors.Is(err, auth.ErrSessionNotFound):
				m.writeError(w, http.StatusUnauthorized, auth.CodeSessionNotFound, "Invalid session")
			default:
				m.writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Temporary failure, try again")
			}
			return
		}

		ctx := context.WithValue(r.Context(), appctx.UserIDKey, user.ID.String())
		ctx = context.WithValue(ctx, appctx.UsernameKey, user.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError writes a JSON error response
func (m *AuthMiddleware) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(response)
}
