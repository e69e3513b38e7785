package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/abgdnv/stockledger/internal/idempotency"
	"github.com/abgdnv/stockledger/internal/store"
	"github.com/abgdnv/stockledger/pkg/messaging/events"
	"github.com/shopspring/decimal"
)

// maxPrice is the first value that does not fit NUMERIC(12, 2).
var maxPrice = decimal.New(1, 10)

// validatePrice rejects prices the products table would round or refuse.
func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", lerrors.ErrInvalidInput)
	}
	if !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: price must have at most two decimal places", lerrors.ErrInvalidInput)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return fmt.Errorf("%w: price must be below %s", lerrors.ErrInvalidInput, maxPrice.String())
	}
	return nil
}

// AddProduct validates and inserts a new product.
func (s *Service) AddProduct(ctx context.Context, dto ProductCreateDto) (_ *ProductDto, err error) {
	ctx, end := s.startSpan(ctx, "add_product")
	defer end(&err)

	dto.Name = strings.TrimSpace(dto.Name)
	if err := s.validate.Struct(dto); err != nil {
		return nil, fmt.Errorf("%w: %w", lerrors.ErrInvalidInput, err)
	}
	if err := validatePrice(dto.Price); err != nil {
		return nil, err
	}

	var created *store.Product
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = tx.InsertProduct(ctx, store.NewProduct{
			Name:       dto.Name,
			CategoryID: dto.CategoryID,
			SupplierID: dto.SupplierID,
			Price:      dto.Price,
			Quantity:   dto.Quantity,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}

	s.logger.InfoContext(ctx, "product added", "product_id", created.ID, "quantity", created.Quantity)
	return toProductDto(created), nil
}

// AdjustStock overwrites price and quantity. Applying the same values twice leaves the same state.
func (s *Service) AdjustStock(ctx context.Context, id int64, price decimal.Decimal, quantity int32) (_ *ProductDto, err error) {
	ctx, end := s.startSpan(ctx, "adjust_stock")
	defer end(&err)

	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", lerrors.ErrInvalidInput)
	}

	var updated *store.Product
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		updated, err = tx.UpdateProduct(ctx, id, price, quantity)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust product %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "stock adjusted", "product_id", id, "quantity", quantity, "price", price.String())
	s.publishStockChanged(ctx, events.StockChangedEvent{
		ProductID:   updated.ID,
		ProductName: updated.Name,
		Quantity:    updated.Quantity,
		Reason:      events.ReasonAdjustment,
		OccurredAt:  s.now().UTC(),
	})
	return toProductDto(updated), nil
}

// RemoveProduct deletes the product. Ledger rows referencing it stay in place unless strict removal rejects the call.
func (s *Service) RemoveProduct(ctx context.Context, id int64) (_ string, err error) {
	ctx, end := s.startSpan(ctx, "remove_product")
	defer end(&err)

	var name string
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if s.strictRemoval {
			count, err := tx.CountTransactions(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: %d sales reference product %d", lerrors.ErrProductInUse, count, id)
			}
		}
		name = p.Name
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return "", fmt.Errorf("failed to remove product %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "product removed", "product_id", id, "name", name)
	return name, nil
}

// RecordSale commits a sale. The product row is locked for the duration of the
// transaction and the decrement is conditional, so concurrent sales never oversell.
func (s *Service) RecordSale(ctx context.Context, dto SaleCreateDto) (_ *SaleDto, err error) {
	ctx, end := s.startSpan(ctx, "record_sale")
	defer end(&err)

	if err := s.validate.Struct(dto); err != nil {
		return nil, fmt.Errorf("%w: %w", lerrors.ErrInvalidInput, err)
	}
	date := s.now().UTC()
	if dto.Date != "" {
		date, err = time.Parse(DateLayout, dto.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: date: %w", lerrors.ErrInvalidInput, err)
		}
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	key := dto.IdempotencyKey
	if key != "" && s.idempotency != nil {
		replay, err := s.reserve(ctx, key)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	// Key bookkeeping must outlive a cancelled request once the sale is decided.
	bookkeepingCtx := context.WithoutCancel(ctx)
	sale, err := s.commitSale(ctx, dto, date)
	if err != nil {
		if key != "" && s.idempotency != nil {
			if relErr := s.idempotency.Release(bookkeepingCtx, key); relErr != nil {
				s.logger.WarnContext(ctx, "failed to release idempotency key", "key", key, "error", relErr)
			}
		}
		return nil, fmt.Errorf("failed to record sale of product %d: %w", dto.ProductID, err)
	}

	if key != "" && s.idempotency != nil {
		s.complete(bookkeepingCtx, key, sale)
	}
	s.metrics.UnitsSold(sale.Quantity)
	s.salesCounter.Add(ctx, 1)
	s.logger.InfoContext(ctx, "sale recorded",
		"transaction_id", sale.TransactionID,
		"product_id", sale.ProductID,
		"quantity", sale.Quantity,
		"remaining", sale.RemainingQuantity,
	)
	return sale, nil
}

func (s *Service) commitSale(ctx context.Context, dto SaleCreateDto, date time.Time) (*SaleDto, error) {
	var (
		sale        *SaleDto
		productName string
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, dto.ProductID)
		if err != nil {
			return err
		}
		if dto.Quantity > p.Quantity {
			return fmt.Errorf("%w: requested %d, available %d", lerrors.ErrInsufficientStock, dto.Quantity, p.Quantity)
		}
		t, err := tx.InsertTransaction(ctx, store.NewTransaction{
			ProductID:    p.ID,
			CustomerID:   dto.CustomerID,
			Date:         date,
			QuantitySold: dto.Quantity,
		})
		if err != nil {
			return err
		}
		remaining, err := tx.DecrementStock(ctx, p.ID, dto.Quantity)
		if err != nil {
			return err
		}
		productName = p.Name
		sale = &SaleDto{
			TransactionID:     t.ID,
			ProductID:         t.ProductID,
			CustomerID:        t.CustomerID,
			Quantity:          t.QuantitySold,
			Date:              t.Date.Format(DateLayout),
			RemainingQuantity: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStockChanged(ctx, events.StockChangedEvent{
		ProductID:     sale.ProductID,
		ProductName:   productName,
		Quantity:      sale.RemainingQuantity,
		Reason:        events.ReasonSale,
		TransactionID: sale.TransactionID,
		OccurredAt:    s.now().UTC(),
	})
	return sale, nil
}

// reserve claims key, returning the stored sale when the key already completed.
func (s *Service) reserve(ctx context.Context, key string) (*SaleDto, error) {
	stored, err := s.idempotency.Reserve(ctx, key)
	if errors.Is(err, idempotency.ErrInFlight) {
		return nil, fmt.Errorf("%w: key %s", lerrors.ErrDuplicateRequest, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lerrors.ErrConnectionFailure, err)
	}
	if stored == nil {
		return nil, nil
	}
	var sale SaleDto
	if err := json.Unmarshal(stored, &sale); err != nil {
		return nil, fmt.Errorf("%w: stored response for key %s: %w", lerrors.ErrPersistence, key, err)
	}
	sale.Replayed = true
	s.logger.InfoContext(ctx, "sale replayed", "key", key, "transaction_id", sale.TransactionID)
	return &sale, nil
}

func (s *Service) complete(ctx context.Context, key string, sale *SaleDto) {
	payload, err := json.Marshal(sale)
	if err == nil {
		err = s.idempotency.Complete(ctx, key, payload)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to store idempotent response", "key", key, "error", err)
	}
}

// publishStockChanged never fails the caller: the change is already committed.
func (s *Service) publishStockChanged(ctx context.Context, event events.StockChangedEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.PublishFailed()
		s.logger.WarnContext(ctx, "failed to publish stock change", "product_id", event.ProductID, "error", err)
	}
}
