package service

import (
	"context"
	"fmt"

	"github.com/abgdnv/stockledger/internal/store"
)

const maxPageSize = 1000

// FindProduct returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindProduct(ctx context.Context, id int64) (*ProductDto, error) {
	p, err := s.store.FindProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	return toProductDto(p), nil
}

func (s *Service) ListProducts(ctx context.Context, offset, limit int32) ([]ProductDto, error) {
	products, err := s.store.ListProducts(ctx, offset, min(limit, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toProductDto(&products[i])
	}
	return dtos, nil
}

func (s *Service) ListTransactions(ctx context.Context, offset, limit int32) ([]TransactionDto, error) {
	transactions, err := s.store.ListTransactions(ctx, offset, min(limit, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	dtos := make([]TransactionDto, len(transactions))
	for i, t := range transactions {
		dtos[i] = TransactionDto{
			ID:           t.ID,
			ProductID:    t.ProductID,
			CustomerID:   t.CustomerID,
			Date:         t.Date.Format(DateLayout),
			QuantitySold: t.QuantitySold,
		}
	}
	return dtos, nil
}

// ListReference returns ErrUnknownReference unless kind is categories, suppliers or customers.
func (s *Service) ListReference(ctx context.Context, kind string) ([]ReferenceDto, error) {
	items, err := s.store.ListReference(ctx, store.ReferenceKind(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}
	dtos := make([]ReferenceDto, len(items))
	for i, item := range items {
		dtos[i] = ReferenceDto{ID: item.ID, Name: item.Name}
	}
	return dtos, nil
}
