// Package handler provides HTTP handlers for the Drivebox web interface.
package handler

import (
	"context"
	"net/http"

	"github.com/prn-tf/drivebox/internal/domain"
	"github.com/prn-tf/drivebox/internal/service"
)

// ctxKey is an unexported context key type to avoid collisions.
type ctxKey int

const sessionCtxKey ctxKey = iota

// RequireSession is the single access-control gate for protected routes.
// It resolves the session cookie and, on any failure, redirects to the login
// page without executing the wrapped handler. The resolved session is placed
// in the request context as an explicit value.
func RequireSession(sessions *service.SessionService, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			sess, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session placed by RequireSession.
// The second return is false for requests that did not pass the gate.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey).(*domain.Session)
	return sess, ok
}
