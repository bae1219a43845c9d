package middleware

import (
	"context"
	"net/http"

	"github.com/lostfound-api/internal/domain"
)

type contextKey string

const actorKey contextKey = "actor"

// Resolver turns an Authorization header into the calling actor.
type Resolver interface {
	Resolve(ctx context.Context, header string) (domain.Actor, error)
}

// RequireIdentity rejects requests without a valid bearer token and injects
// the resolved actor into the context.
func RequireIdentity(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := res.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// OptionalIdentity injects the actor when a valid token is present and lets
// anonymous requests through otherwise. A bad token is treated as anonymous.
func OptionalIdentity(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h := r.Header.Get("Authorization"); h != "" {
				if actor, err := res.Resolve(r.Context(), h); err == nil {
					r = r.WithContext(WithActor(r.Context(), actor))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the resolved actor. ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey).(domain.Actor)
	return a, ok && !a.Anonymous()
}
