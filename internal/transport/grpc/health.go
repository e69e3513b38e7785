// Package grpc exposes the standard gRPC health service backed by store reachability.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name clients use to query ledger health.
const ServiceName = "stockledger.v1.Ledger"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker keeps the health status in line with the store.
type HealthChecker struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	logger   *slog.Logger
	serving  bool
}

func NewHealthChecker(pinger Pinger, interval time.Duration, logger *slog.Logger) *HealthChecker {
	return &HealthChecker{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		logger:   logger.With("component", "grpc-health"),
	}
}

// Register is a server.RegistrationFunc.
func (h *HealthChecker) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check pings the store once and updates the status.
func (h *HealthChecker) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	err := h.pinger.Ping(ctx)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if serving := err == nil; serving != h.serving {
		h.serving = serving
		if serving {
			h.logger.InfoContext(ctx, "store reachable, serving")
		} else {
			h.logger.WarnContext(ctx, "store unreachable, not serving", "error", err)
		}
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

// Run checks health every interval until ctx is done, then marks the service as shutting down.
func (h *HealthChecker) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		h.Check(ctx)
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
		}
	}
}
