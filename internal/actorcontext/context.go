package actorcontext

import (
	"context"
	"strings"
)

// Actor identifies the authenticated admin performing a mutation. The core
// treats it as an opaque attribution token supplied by the auth layer.
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// ActorContextKey is the request context key for the acting user.
type ActorContextKey struct{}

// WithActor stores the acting user in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, actor)
}

// ActorFromContext returns the acting user from context, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ActorContextKey{}).(Actor)
	if !ok || strings.TrimSpace(actor.ID) == "" {
		return Actor{}, false
	}
	return actor, true
}
