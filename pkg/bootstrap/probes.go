package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// MarkReady creates the readiness file checked by the orchestrator.
func MarkReady(fileName string) error {
	if err := os.WriteFile(fileName, []byte("ready"), 0o644); err != nil {
		return fmt.Errorf("failed to write readiness file: %w", err)
	}
	return nil
}

// RunLiveness touches the liveness file every interval until ctx is done, then removes both probe files.
func RunLiveness(ctx context.Context, livenessFile, readinessFile string, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer func() {
		_ = os.Remove(livenessFile)
		_ = os.Remove(readinessFile)
	}()
	for {
		now := time.Now()
		if err := os.WriteFile(livenessFile, []byte(now.Format(time.RFC3339)), 0o644); err != nil {
			logger.Warn("failed to update liveness file", "file", livenessFile, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
