// Package alerts consumes stock change events and raises low stock alerts.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/abgdnv/stockledger/pkg/config"
	"github.com/abgdnv/stockledger/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// Severity of a stock alert.
type Severity string

const (
	SeverityLow        Severity = "low_stock"
	SeverityOutOfStock Severity = "out_of_stock"
)

// Alert is raised when a product drops below the low stock threshold.
type Alert struct {
	ProductID   int64
	ProductName string
	Quantity    int32
	Severity    Severity
}

// Evaluate returns the alert for event, if any. Quantities at or above threshold raise nothing.
func Evaluate(event events.StockChangedEvent, threshold int32) (Alert, bool) {
	if event.Quantity >= threshold {
		return Alert{}, false
	}
	severity := SeverityLow
	if event.Quantity <= 0 {
		severity = SeverityOutOfStock
	}
	return Alert{
		ProductID:   event.ProductID,
		ProductName: event.ProductName,
		Quantity:    event.Quantity,
		Severity:    severity,
	}, true
}

// ackableMsg is the part of jetstream.Msg the handler needs.
type ackableMsg interface {
	Data() []byte
	Subject() string
	Ack() error
	Term() error
}

// Start creates the durable consumer on stream and runs the configured number of workers until ctx is done.
func Start(ctx context.Context, js jetstream.JetStream, stream string, subscriberCfg config.SubscriberConfig, threshold int32, logger *slog.Logger) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, cfg)
	if err != nil {
		return err
	}
	g, gCtx := errgroup.WithContext(ctx)
	for range subscriberCfg.Workers {
		g.Go(func() error {
			return runWorker(gCtx, consumer, subscriberCfg, threshold, logger)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, threshold int32, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				logger.ErrorContext(ctx, "failed to fetch messages", "error", err)
				time.Sleep(cfg.Interval)
				continue
			}
			for msg := range batch.Messages() {
				handleMessage(ctx, msg, threshold, logger)
			}
			if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
				logger.WarnContext(ctx, "batch ended with error", "error", err)
			}
		}
	}
}

// handleMessage raises an alert for a stock change when needed. Payloads that cannot be
// decoded are terminated so they are not redelivered.
func handleMessage(ctx context.Context, msg ackableMsg, threshold int32, logger *slog.Logger) {
	if msg == nil {
		logger.ErrorContext(ctx, "received nil message")
		return
	}
	var event events.StockChangedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.ErrorContext(ctx, "failed to unmarshal message", "error", err, "subject", msg.Subject())
		if err := msg.Term(); err != nil {
			logger.ErrorContext(ctx, "failed to terminate message", "error", err)
		}
		return
	}

	if alert, ok := Evaluate(event, threshold); ok {
		logger.WarnContext(ctx, "stock alert",
			slog.String("severity", string(alert.Severity)),
			slog.Int64("product_id", alert.ProductID),
			slog.String("product_name", alert.ProductName),
			slog.Int("quantity", int(alert.Quantity)),
			slog.Int("threshold", int(threshold)),
			slog.String("reason", event.Reason))
	} else {
		logger.DebugContext(ctx, "stock change",
			slog.Int64("product_id", event.ProductID),
			slog.Int("quantity", int(event.Quantity)))
	}

	if err := msg.Ack(); err != nil {
		logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}
