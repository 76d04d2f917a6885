package middleware

import (
	"context"
	"net/http"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/auth"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"

	// SessionCookieName is shared with the JSON API so either surface can
	// read a session started on the other
	SessionCookieName = "session"

	// LandingPath is where anonymous visitors of protected pages end up
	LandingPath = "/"
)

// GetSession retrieves the authenticated session from the request context
// Returns nil if the visitor is anonymous
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// GetIdentity retrieves the signed-in identity from the request context
// Returns nil if the visitor is anonymous
func GetIdentity(ctx context.Context) *model.Identity {
	session := GetSession(ctx)
	if session == nil {
		return nil
	}
	return &session.Identity
}

// Auth returns middleware that requires authentication
// Anonymous visitors are redirected to the landing page
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromCookie(r, authService)
			if session == nil {
				http.Redirect(w, r, LandingPath, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth returns middleware that attempts authentication but doesn't require it
func OptionalAuth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromCookie(r, authService)
			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromCookie(r *http.Request, authService *auth.Service) *auth.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := authService.Validate(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return session
}
