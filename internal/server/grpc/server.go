// Package grpc serves the gRPC health endpoint used by orchestrators to probe
// the order service.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/pkg/errorbank"
)

// ServiceName is the health-check service key reported alongside the overall status.
const ServiceName = "ordertrack.Orders"

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(health.NewServer, NewServer),
	fx.Invoke(Run),
)

// NewServer builds a gRPC server with logging interceptors and registers the
// health service. Handler errors carrying an errorbank kind reach clients
// with the matching status code.
func NewServer(logger *zap.Logger, hs *health.Server) *grpc.Server {
	log := logger.Named("grpc")

	unary := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		return resp, finish(log, "unary", info.FullMethod, start, err)
	}
	stream := func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		return finish(log, "stream", info.FullMethod, start, handler(srv, ss))
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary),
		grpc.ChainStreamInterceptor(stream),
	)
	healthpb.RegisterHealthServer(server, hs)
	return server
}

// finish logs a completed call and converts application errors to gRPC statuses.
func finish(log *zap.Logger, kind, method string, start time.Time, err error) error {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	}
	if err == nil {
		log.Debug("grpc call finished", fields...)
		return nil
	}
	log.Warn("grpc call failed", append(fields, zap.Error(err))...)

	var appErr *errorbank.AppError
	if errors.As(err, &appErr) {
		return appErr.GRPCStatus().Err()
	}
	return err
}

// Run binds the gRPC server to the configured host/port. The health status
// flips to SERVING once the listener is up and back to NOT_SERVING on stop.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, hs *health.Server, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			setServing(hs, healthpb.HealthCheckResponse_SERVING)
			logger.Info("starting gRPC server", zap.String("addr", addr))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
					logger.Fatal("grpc server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			setServing(hs, healthpb.HealthCheckResponse_NOT_SERVING)

			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()
			select {
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			case <-stopped:
				return nil
			}
		},
	})
}

func setServing(hs *health.Server, status healthpb.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
}
