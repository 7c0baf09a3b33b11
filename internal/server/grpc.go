package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ExtractorService is the health service name reporting whether the
// extraction client was built.
const ExtractorService = "handscribe.v1.Extractor"

// NewGRPC builds the gRPC server carrying the health service (plus
// reflection for grpcurl). The overall status is SERVING; ExtractorService is
// NOT_SERVING when extractorReady is false.
func NewGRPC(extractorReady bool) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if extractorReady {
		hs.SetServingStatus(ExtractorService, healthpb.HealthCheckResponse_SERVING)
	} else {
		hs.SetServingStatus(ExtractorService, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	reflection.Register(grpcServer)
	return grpcServer, hs
}
