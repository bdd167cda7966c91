package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ActorHeader names the caller when authentication is disabled.
const ActorHeader = "X-Actor-Id"

// AnonymousActor is recorded when no actor is supplied and auth is off.
const AnonymousActor = "anonymous"

type actorKey struct{}

// ActorResolver resolves an actor ID from a bearer token.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (string, error)
}

// WithActor returns a context carrying actorID.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor ID from context, if present.
func ActorFromContext(ctx context.Context) (string, bool) {
	actorID, ok := ctx.Value(actorKey{}).(string)
	return actorID, ok
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token", Code: "unauthorized"})
				return
			}

			actorID, err := resolver.ResolveActor(r.Context(), token)
			if err != nil || actorID == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid bearer token", Code: "unauthorized"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actorID)))
		})
	}
}

// HeaderActorMiddleware trusts the X-Actor-Id header. It is meant for
// deployments behind an authenticating proxy or for local use.
func HeaderActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actorID == "" {
			actorID = AnonymousActor
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actorID)))
	})
}

func actorOf(r *http.Request) string {
	if actorID, ok := ActorFromContext(r.Context()); ok && actorID != "" {
		return actorID
	}
	return AnonymousActor
}
