package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/dojobook/libs/grpcx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/grpcserver"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func startGrpcServer(ctx context.Context, logger *slog.Logger, port string, slots grpcserver.Slots) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, hs := grpcx.NewServer(logger)
	grpcserver.Register(srv, slots)
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	return nil
}
