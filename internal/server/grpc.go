package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const readinessInterval = 15 * time.Second

// ReadinessCheck reports whether dependencies are reachable. *healthhandler.Checker implements it.
type ReadinessCheck interface {
	Check(ctx context.Context) error
}

// GRPCServer exposes grpc.health.v1.Health and keeps its status in line with ReadinessCheck.
type GRPCServer struct {
	srv    *grpc.Server
	health *health.Server
	check  ReadinessCheck
	logger *zap.Logger
}

// NewGRPCServer builds the gRPC server with otelgrpc stats. check may be nil, in which case
// the service always reports SERVING.
func NewGRPCServer(check ReadinessCheck, logger *zap.Logger) *GRPCServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPCServer{srv: srv, health: hs, check: check, logger: logger}
}

// Refresh runs the readiness check once and updates the overall serving status.
func (g *GRPCServer) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if g.check != nil {
		if err := g.check.Check(ctx); err != nil {
			g.logger.Warn("readiness check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	g.health.SetServingStatus("", status)
}

// Run serves on addr until ctx is done, refreshing readiness periodically.
func (g *GRPCServer) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	g.Refresh(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.srv.Serve(lis)
	}()

	ticker := time.NewTicker(readinessInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		case <-ticker.C:
			g.Refresh(ctx)
		case <-ctx.Done():
			g.health.Shutdown()
			g.srv.GracefulStop()
			return nil
		}
	}
}
