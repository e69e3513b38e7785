// Package store provides the persistence layer for products and the sales ledger.
package store

import (
	"context"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a row of the products table.
type Product struct {
	ID         int64
	Name       string
	CategoryID int64
	SupplierID int64
	Price      decimal.Decimal
	Quantity   int32
}

// Transaction is a row of the append-only sales ledger.
type Transaction struct {
	ID           int64
	ProductID    int64
	CustomerID   int64
	Date         time.Time
	QuantitySold int32
}

// SaleRow is one line of the sales history join.
type SaleRow struct {
	TransactionID int64
	ProductName   string
	QuantitySold  int32
	Date          time.Time
	CustomerName  string
}

// ReferenceKind names one of the read-only reference tables.
type ReferenceKind string

const (
	Categories ReferenceKind = "categories"
	Suppliers  ReferenceKind = "suppliers"
	Customers  ReferenceKind = "customers"
)

// ReferenceItem is an id and name pair from a reference table.
type ReferenceItem struct {
	ID   int64
	Name string
}

// NewProduct holds the columns of a product to insert.
type NewProduct struct {
	Name       string
	CategoryID int64
	SupplierID int64
	Price      decimal.Decimal
	Quantity   int32
}

// NewTransaction holds the columns of a ledger row to append.
type NewTransaction struct {
	ProductID    int64
	CustomerID   int64
	Date         time.Time
	QuantitySold int32
}

// Store abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
// Errors are classified as ErrConnectionFailure or ErrPersistence unless stated otherwise.
type Store interface {
	// WithTx runs fn inside a single transaction. The transaction commits when fn returns nil
	// and rolls back otherwise; fn's error is returned unchanged.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// FindProduct returns ErrProductNotFound if no product exists with the given ID.
	FindProduct(ctx context.Context, id int64) (*Product, error)

	// ListProducts returns products ordered by ID.
	ListProducts(ctx context.Context, offset, limit int32) ([]Product, error)

	// ListTransactions returns ledger rows ordered by ID.
	ListTransactions(ctx context.Context, offset, limit int32) ([]Transaction, error)

	// LowStock yields products with quantity strictly below threshold in storage order.
	// Every range over the sequence runs a fresh query.
	LowStock(ctx context.Context, threshold int32) iter.Seq2[Product, error]

	// SalesHistory yields transactions joined with their product and customer, newest date first.
	// Rows whose product or customer no longer exists are skipped.
	SalesHistory(ctx context.Context) iter.Seq2[SaleRow, error]

	// ListReference returns ErrUnknownReference for a kind outside the known tables.
	ListReference(ctx context.Context, kind ReferenceKind) ([]ReferenceItem, error)

	Ping(ctx context.Context) error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// GetProductForUpdate locks the product row until the transaction ends.
	// Returns ErrProductNotFound if no product exists with the given ID.
	GetProductForUpdate(ctx context.Context, id int64) (*Product, error)

	InsertProduct(ctx context.Context, p NewProduct) (*Product, error)

	// UpdateProduct overwrites price and quantity.
	// Returns ErrProductNotFound if no product exists with the given ID.
	UpdateProduct(ctx context.Context, id int64, price decimal.Decimal, quantity int32) (*Product, error)

	// DecrementStock subtracts qty only if at least qty units are available and returns the remaining quantity.
	// Returns ErrInsufficientStock when no row qualifies.
	DecrementStock(ctx context.Context, id int64, qty int32) (int32, error)

	InsertTransaction(ctx context.Context, t NewTransaction) (*Transaction, error)

	// DeleteProduct returns ErrProductNotFound if no product exists with the given ID.
	DeleteProduct(ctx context.Context, id int64) error

	CountTransactions(ctx context.Context, productID int64) (int64, error)
}

// ValidReferenceKind reports whether kind names a known reference table.
func ValidReferenceKind(kind ReferenceKind) bool {
	switch kind {
	case Categories, Suppliers, Customers:
		return true
	}
	return false
}
