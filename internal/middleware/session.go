// Package middleware provides HTTP middleware.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	authmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
)

// SessionCookieName is the HTTP-only cookie carrying the session ID.
const SessionCookieName = "session_id"

type contextKey string

var sessionContextKey = contextKey("session")

// SessionFinder resolves session IDs. Defined as a subset of the session
// repository so handlers and tests can stub it.
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*authmodel.Session, error)
}

// NewSessionMiddleware reads the session ID from the cookie or a bearer
// token, validates it, and injects the principal into the request context.
// Requests without a live session get 401; absence of a principal is the
// gate's redirect signal, not a server fault.
func NewSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sessionIDFromRequest(r)
			if id == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			session, err := finder.FindByID(r.Context(), id)
			if err != nil || session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the authenticated session placed there by the
// middleware.
func SessionFromContext(ctx context.Context) (*authmodel.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(*authmodel.Session)
	if !ok || session == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return session, nil
}

// ContextWithSession injects a session for tests and non-middleware callers.
func ContextWithSession(ctx context.Context, session *authmodel.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

func sessionIDFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
