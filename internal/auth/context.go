package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"

	HeaderUserID         = "x-user-id"
	HeaderIdempotencyKey = "x-idempotency-key"
)

// WithUserID stores the operator identity, overriding metadata.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the operator set by an interceptor, falling back to the
// x-user-id metadata forwarded by the gateway.
func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(userIDKey).(string); ok {
		return val
	}
	return fromMetadata(ctx, HeaderUserID)
}

// GetIdempotencyKey reads the key from the x-idempotency-key metadata.
func GetIdempotencyKey(ctx context.Context) string {
	return fromMetadata(ctx, HeaderIdempotencyKey)
}

func fromMetadata(ctx context.Context, header string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(header); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
