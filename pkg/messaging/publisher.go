package messaging

import (
	"context"
)

// StockChangedSubject is the subject stock level changes are published on.
const StockChangedSubject = "inventory.stock.changed"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards every event. Used when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
