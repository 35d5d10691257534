// internal/identity/middleware.go
package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey struct{ name string }

var actorKey = &contextKey{"actor"}

// WithActor returns a context carrying the authenticated profile id.
func WithActor(ctx context.Context, profileID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey, profileID)
}

// ActorFromContext returns the authenticated profile id, if any.
func ActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey).(uuid.UUID)
	return id, ok
}

// RequireAuth verifies the bearer token and injects the actor into the
// request context. Requests without a valid token are rejected before
// they reach any handler.
func RequireAuth(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			profileID, err := issuer.Verify(raw)
			if err != nil {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), profileID)))
		})
	}
}
