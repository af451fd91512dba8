package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// errAddressRequired is returned when no address is given to Check.
var errAddressRequired = errors.New("address must be provided")

// Check asks the health endpoint at address for the engine status.
// The endpoint is plaintext; it is meant for loopback or a trusted network.
func Check(ctx context.Context, address string, timeout time.Duration) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if address == "" {
		return healthpb.HealthCheckResponse_UNKNOWN, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial health endpoint: %w", err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	response, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("check health: %w", err)
	}

	return response.GetStatus(), nil
}
