// Package main runs the worker that raises low stock alerts from stock change events.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/stockledger/internal/alerts"
	"github.com/abgdnv/stockledger/internal/config"
	"github.com/abgdnv/stockledger/pkg/bootstrap"
	"github.com/abgdnv/stockledger/pkg/config/configloader"
	"github.com/abgdnv/stockledger/pkg/messaging"
	"github.com/abgdnv/stockledger/pkg/nats"
	"golang.org/x/sync/errgroup"
)

const serviceName = "alerts"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run starts the stock alerts subscriber, the liveness probe and optionally the pprof server.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.AlertsConfig](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create NATS connection: %w", err)
	}
	defer natsConn.Close()
	js, err := nats.NewJetStreamContext(natsConn)
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}
	if _, err := nats.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.StockChangedSubject); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Stock alerts subscriber started", "threshold", cfg.Ledger.LowStockThreshold)
		err := alerts.Start(gCtx, js, cfg.Nats.Stream, cfg.Subscriber, cfg.Ledger.LowStockThreshold, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("subscriber failed", "error", err)
			return err
		}
		logger.Info("subscriber stopped gracefully.")
		return nil
	})

	if err := bootstrap.MarkReady(cfg.Probes.ReadinessFileName); err != nil {
		return err
	}
	g.Go(func() error {
		return bootstrap.RunLiveness(gCtx, cfg.Probes.LivenessFileName, cfg.Probes.ReadinessFileName, cfg.Probes.LivenessInterval, logger)
	})

	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr: cfg.PProf.Addr,
		}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
