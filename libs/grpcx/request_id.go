package grpcx

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
)

// RequestIDMetadataKey is the metadata key used for request id propagation.
// gRPC metadata keys are lowercase.
const RequestIDMetadataKey = "x-request-id"

// RequestIDFromContext shares the HTTP context key so log lines look the same
// for both transports.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return httpx.ContextWithRequestID(ctx, id)
}
