package service

import (
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of transaction dates.
const DateLayout = "2006-01-02"

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name       string          `json:"name"        validate:"required,max=100"`
	CategoryID int64           `json:"category_id"`
	SupplierID int64           `json:"supplier_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int32           `json:"quantity"    validate:"min=1"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	CategoryID int64           `json:"category_id"`
	SupplierID int64           `json:"supplier_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int32           `json:"quantity"`
}

// StockUpdateDto carries the absolute values written by AdjustStock.
type StockUpdateDto struct {
	Price    *decimal.Decimal `json:"price"    validate:"required"`
	Quantity *int32           `json:"quantity" validate:"required,min=0"`
}

// SaleCreateDto represents a sale to record. An empty Date means today.
type SaleCreateDto struct {
	ProductID      int64  `json:"product_id"`
	CustomerID     int64  `json:"customer_id"`
	Quantity       int32  `json:"quantity"    validate:"gt=0"`
	Date           string `json:"date"        validate:"omitempty,datetime=2006-01-02"`
	IdempotencyKey string `json:"-"           validate:"omitempty,max=128"`
}

// SaleDto is the result of a committed sale.
type SaleDto struct {
	TransactionID     int64  `json:"transaction_id"`
	ProductID         int64  `json:"product_id"`
	CustomerID        int64  `json:"customer_id"`
	Quantity          int32  `json:"quantity"`
	Date              string `json:"date"`
	RemainingQuantity int32  `json:"remaining_quantity"`
	Replayed          bool   `json:"replayed,omitempty"`
}

// TransactionDto is a ledger row.
type TransactionDto struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	CustomerID   int64  `json:"customer_id"`
	Date         string `json:"date"`
	QuantitySold int32  `json:"quantity_sold"`
}

// LowStockItem is one line of the low stock report.
type LowStockItem struct {
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
}

// SaleReportItem is one line of the sales report.
type SaleReportItem struct {
	ProductName  string `json:"product_name"`
	QuantitySold int32  `json:"quantity_sold"`
	Date         string `json:"date"`
	CustomerName string `json:"customer_name"`
}

// ReferenceDto is an entry of a reference table.
type ReferenceDto struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
