package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey string

// ActorIDKey carries the acting staff member's id through a request context.
const ActorIDKey contextKey = "actor_id"

// GetActorID resolves the acting user for audit trails. Empty means a
// customer- or system-initiated action; status events store it as null.
func GetActorID(ctx context.Context) string {
	if val, ok := ctx.Value(ActorIDKey).(string); ok {
		return val
	}

	// Fallback to incoming gRPC metadata when called from an RPC layer.
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-actor-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// WithActorID stamps the acting user onto the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}
