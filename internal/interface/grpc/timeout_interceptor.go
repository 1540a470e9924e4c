package grpcadapter

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewTimeoutUnaryInterceptor は、各 unary RPC にタイムアウトを付与する interceptor。
//   - timeout <= 0 の場合は何もしない
//   - 既に ctx に deadline がある場合は「より短い方」を優先
func NewTimeoutUnaryInterceptor(logger *zap.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if timeout <= 0 {
			return handler(ctx, req)
		}

		if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= timeout {
			return handler(ctx, req)
		}

		ctx2, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp, err := handler(ctx2, req)

		if errors.Is(err, context.DeadlineExceeded) || (err == nil && errors.Is(ctx2.Err(), context.DeadlineExceeded)) {
			logger.Warn("request timeout",
				zap.String("method", info.FullMethod),
				zap.Duration("timeout", timeout),
			)
			return nil, status.Error(codes.DeadlineExceeded, "request timeout")
		}

		return resp, err
	}
}
