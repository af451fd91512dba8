package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "mailbox.Engine"

// Server serves grpc.health.v1 for the engine.
type Server struct {
	// grpc is the underlying gRPC server.
	grpc *grpc.Server
	// health tracks the serving status per service name.
	health *grpchealth.Server
}

// NewServer creates a server that reports NOT_SERVING until SetServing(true) is called.
func NewServer() *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: grpchealth.NewServer(),
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)

	return s
}

// SetServing flips the reported status. The engine calls it when the broker connection changes.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// ListenAndServe listens on address and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is canceled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx = logger.WithName(ctx, "health")

	logger.InfoKV(ctx, "Health endpoint listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop returns so Serve does not return early.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
		close(done)
	}()

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health endpoint stopped")

	return nil
}
