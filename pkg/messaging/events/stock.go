package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/stockledger/pkg/messaging"
)

const (
	ReasonSale       = "sale"
	ReasonAdjustment = "adjustment"
)

// StockChangedEvent reports the quantity of a product after a committed change.
type StockChangedEvent struct {
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int32     `json:"quantity"`
	Reason        string    `json:"reason"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e StockChangedEvent) Subject() string {
	return messaging.StockChangedSubject
}

func (e StockChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
