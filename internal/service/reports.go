package service

import (
	"context"
	"iter"

	"github.com/abgdnv/stockledger/internal/store"
)

// LowStockReport is lazy: nothing is read until the sequence is ranged over,
// and each range re-reads current stock.
func (s *Service) LowStockReport(ctx context.Context, threshold int32) iter.Seq2[LowStockItem, error] {
	if threshold <= 0 {
		threshold = s.threshold
	}
	return func(yield func(LowStockItem, error) bool) {
		var err error
		spanCtx, end := s.startSpan(ctx, "low_stock_report")
		defer end(&err)

		rows := 0
		defer func() { s.metrics.ReportRows("low_stock", rows) }()

		for p, perr := range s.store.LowStock(spanCtx, threshold) {
			if perr != nil {
				err = perr
				yield(LowStockItem{}, perr)
				return
			}
			rows++
			if !yield(LowStockItem{ProductName: p.Name, Quantity: p.Quantity}, nil) {
				return
			}
		}
	}
}

// SalesReport yields sales whose product and customer still exist, newest date first.
func (s *Service) SalesReport(ctx context.Context) iter.Seq2[SaleReportItem, error] {
	return func(yield func(SaleReportItem, error) bool) {
		var err error
		spanCtx, end := s.startSpan(ctx, "sales_report")
		defer end(&err)

		rows := 0
		defer func() { s.metrics.ReportRows("sales", rows) }()

		for row, rerr := range s.store.SalesHistory(spanCtx) {
			if rerr != nil {
				err = rerr
				yield(SaleReportItem{}, rerr)
				return
			}
			rows++
			if !yield(toSaleReportItem(row), nil) {
				return
			}
		}
	}
}

func toSaleReportItem(row store.SaleRow) SaleReportItem {
	return SaleReportItem{
		ProductName:  row.ProductName,
		QuantitySold: row.QuantitySold,
		Date:         row.Date.Format(DateLayout),
		CustomerName: row.CustomerName,
	}
}
