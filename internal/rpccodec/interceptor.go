package rpccodec

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// UnaryTimeout returns a server interceptor that bounds every unary call to
// timeout, enforcing per-call timeouts (≤500ms) at the server boundary as
// well as the client pool.
func UnaryTimeout(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, req)
	}
}
