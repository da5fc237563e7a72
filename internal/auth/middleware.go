// internal/auth/middleware.go
package auth

import (
	"errors"
	"net/http"
	"strings"

	"exam-quiz/pkg/response"
)

// RequireSession rejects requests without a live session.
func RequireSession(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Authentication required")
				return
			}

			session, err := svc.ParseSession(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, ErrUnauthorized) {
					response.Unauthorized(w, "Invalid or expired session")
					return
				}
				response.InternalError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// OptionalSession attaches the session when a valid token is sent and lets
// anonymous requests through otherwise.
func OptionalSession(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, ok := bearerToken(r); ok {
				if session, err := svc.ParseSession(r.Context(), tokenString); err == nil {
					r = r.WithContext(WithSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
