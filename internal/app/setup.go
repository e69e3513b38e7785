// Package app wires the ledger service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/stockledger/internal/config"
	"github.com/abgdnv/stockledger/internal/idempotency"
	"github.com/abgdnv/stockledger/internal/metrics"
	"github.com/abgdnv/stockledger/internal/service"
	"github.com/abgdnv/stockledger/internal/store"
	grpcImpl "github.com/abgdnv/stockledger/internal/transport/grpc"
	"github.com/abgdnv/stockledger/internal/transport/rest"
	pkgconfig "github.com/abgdnv/stockledger/pkg/config"
	"github.com/abgdnv/stockledger/pkg/messaging"
	pnats "github.com/abgdnv/stockledger/pkg/nats"
	"github.com/abgdnv/stockledger/pkg/server"
	"github.com/abgdnv/stockledger/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

const (
	serviceName         = "ledger_service"
	healthCheckInterval = 5 * time.Second
)

type Dependencies struct {
	LedgerService service.LedgerService
	Store         store.Store
	Health        *grpcImpl.HealthChecker
	Registry      *prometheus.Registry
	Logger        *slog.Logger
	Threshold     int32
	RateLimit     pkgconfig.RateLimitConfig
	closers       []func() error
}

// Close releases the NATS and Redis connections opened by SetupDependencies.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// SetupDependencies builds the ledger service on top of dbPool. NATS and Redis are
// connected only when configured.
func SetupDependencies(ctx context.Context, dbPool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	pgStore := store.NewPgStore(dbPool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Store:     pgStore,
		Registry:  registry,
		Logger:    logger,
		Threshold: cfg.Ledger.LowStockThreshold,
		RateLimit: cfg.HTTPServer.RateLimit,
	}

	meterProvider, err := telemetry.NewMeterProvider(serviceName, registry)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, func() error {
		return meterProvider.Shutdown(context.Background())
	})

	opts := []service.Option{
		service.WithMetrics(metrics.New(registry)),
		service.WithMeterProvider(meterProvider),
		service.WithStrictRemoval(cfg.Ledger.StrictRemoval),
		service.WithLowStockThreshold(cfg.Ledger.LowStockThreshold),
	}

	if cfg.Nats.Enabled {
		publisher, err := setupPublisher(ctx, deps, cfg)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		opts = append(opts, service.WithPublisher(publisher))
		logger.Info("Stock events enabled", "stream", cfg.Nats.Stream, "subject", messaging.StockChangedSubject)
	}

	if cfg.Redis.Addr != "" {
		client, err := idempotency.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Timeout)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.closers = append(deps.closers, client.Close)
		opts = append(opts, service.WithIdempotency(idempotency.NewRedisStore(client, cfg.Ledger.IdempotencyTTL)))
		logger.Info("Idempotent sales enabled", "redis", cfg.Redis.Addr)
	}

	deps.LedgerService = service.NewService(pgStore, logger, opts...)
	deps.Health = grpcImpl.NewHealthChecker(pgStore, healthCheckInterval, logger)
	return deps, nil
}

func setupPublisher(ctx context.Context, deps *Dependencies, cfg *config.Config) (messaging.Publisher, error) {
	nc, err := pnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, func() error {
		return nc.Drain()
	})
	js, err := pnats.NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	if _, err := pnats.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.StockChangedSubject); err != nil {
		return nil, fmt.Errorf("failed to prepare stock events stream: %w", err)
	}
	return messaging.NewBreakerPublisher("stock-events", pnats.NewNatsPublisher(js), cfg.CircuitBreaker), nil
}

// SetupHttpHandler initializes the router and routes of the ledger service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes of the ledger service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	ledgerHandler := rest.NewHandler(deps.LedgerService, deps.Store, deps.RateLimit, deps.Threshold, deps.Logger)
	ledgerHandler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
}

// SetupHttpServer creates and configures the HTTP server of the ledger service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(serviceName, cfg.HTTPServer, SetupHttpHandler(deps))
}

// SetupGrpcServer initializes the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(reflectionEnabled, deps.Health.Register)
}
