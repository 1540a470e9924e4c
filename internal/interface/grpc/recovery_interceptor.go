package grpcadapter

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Unary 用 Recovery interceptor
func NewRecoveryUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, "panic recovered in unary handler", info.FullMethod, r)
				err = status.Error(codes.Internal, "internal error")
			}
		}()

		return handler(ctx, req)
	}
}

// Streaming 用 Recovery interceptor (health Watch)
func NewRecoveryStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, "panic recovered in stream handler", info.FullMethod, r)
				err = status.Error(codes.Internal, "internal error")
			}
		}()

		return handler(srv, ss)
	}
}

func logPanic(logger *zap.Logger, msg, method string, r any) {
	logger.Error(msg,
		zap.Any("panic", r),
		zap.String("method", method),
		zap.ByteString("stacktrace", debug.Stack()),
	)
}
