// Package grpcadapter exposes the service's readiness over the standard
// gRPC health protocol.
package grpcadapter

import (
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the todo API.
const ServiceName = "todo.TodoService"

// HealthServer is a gRPC server that only serves grpc.health.v1 and
// reflection. It starts NOT_SERVING until SetServing(true).
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewHealthServer(logger *zap.Logger, requestTimeout time.Duration) *HealthServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			NewRecoveryUnaryInterceptor(logger),
			NewTimeoutUnaryInterceptor(logger, requestTimeout),
			NewLoggingUnaryInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			NewRecoveryStreamInterceptor(logger),
			NewLoggingStreamInterceptor(logger),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	s := &HealthServer{srv: srv, health: hs, logger: logger}
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the todo service status.
func (s *HealthServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	s.logger.Info("health status changed", zap.String("status", st.String()))
}

// Serve blocks until the listener fails or the server stops.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server is starting", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains open streams.
func (s *HealthServer) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *HealthServer) Stop() {
	s.srv.Stop()
}
