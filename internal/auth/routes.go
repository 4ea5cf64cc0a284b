package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers all authentication routes with the Chi router.
// Public routes: /register, /login. Protected routes: /logout, /me.
// loginLimiter rate-limits the login endpoint and may be nil.
func RegisterRoutes(r chi.Router, handler *AuthHandler, authMiddleware, loginLimiter Middleware) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)

		if loginLimiter != nil {
			r.With(loginLimiter).Post("/login", handler.Login)
		} else {
			r.Post("/login", handler.Login)
		}

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", handler.Logout)
			r.Get("/me", handler.GetMe)
		})
	})
}
