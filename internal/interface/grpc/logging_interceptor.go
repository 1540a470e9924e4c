package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// NewLoggingUnaryInterceptor logs unary RPCs with method, code and duration.
// Successful calls go to Debug: health probes are frequent.
func NewLoggingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		logRPC(logger, "gRPC unary request", info.FullMethod, time.Since(start), err)
		return resp, err
	}
}

// NewLoggingStreamInterceptor logs stream RPCs with method, code and duration.
func NewLoggingStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()

		err := handler(srv, ss)

		logRPC(logger, "gRPC stream request", info.FullMethod, time.Since(start), err)
		return err
	}
}

func logRPC(logger *zap.Logger, msg, method string, d time.Duration, err error) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", d),
	}

	if err != nil {
		logger.Error(msg, append(fields, zap.Error(err))...)
		return
	}
	logger.Debug(msg, fields...)
}
