// internal/common/auth/middleware.go
package auth

import (
	"errors"
	"net/http"
	"strings"

	"gig-marketplace/internal/common/logger"

	"github.com/gorilla/mux"
)

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware attaches the caller identity when the request carries a live session.
// Requests without one pass through anonymously; handlers enforce RequireIdentity.
func Middleware(store *SessionStore, cookieName string, log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := store.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					log.Warn("session lookup failed", map[string]interface{}{
						"error": err.Error(),
						"path":  r.URL.Path,
					})
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
