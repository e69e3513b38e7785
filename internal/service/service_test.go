package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/abgdnv/stockledger/internal/idempotency"
	"github.com/abgdnv/stockledger/internal/metrics"
	"github.com/abgdnv/stockledger/internal/store"
	"github.com/abgdnv/stockledger/pkg/messaging"
	"github.com/abgdnv/stockledger/pkg/messaging/events"
	"github.com/abgdnv/stockledger/pkg/telemetry"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	st.AddReference(store.Customers, 1, "Alice")
	st.AddReference(store.Customers, 2, "Bob")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(st, logger, opts...), st
}

func addProduct(t *testing.T, s *Service, name string, qty int32) *ProductDto {
	t.Helper()
	p, err := s.AddProduct(context.Background(), ProductCreateDto{
		Name: name, CategoryID: 1, SupplierID: 1, Price: decimal.RequireFromString("2.50"), Quantity: qty,
	})
	require.NoError(t, err)
	return p
}

func quantityOf(t *testing.T, s *Service, id int64) int32 {
	t.Helper()
	p, err := s.FindProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func ledgerSize(t *testing.T, s *Service) int {
	t.Helper()
	txs, err := s.ListTransactions(context.Background(), 0, 0)
	require.NoError(t, err)
	return len(txs)
}

func Test_LedgerService_AddProduct(t *testing.T) {
	testCases := []struct {
		name        string
		dto         ProductCreateDto
		expectError error
	}{
		{
			name: "Success",
			dto:  ProductCreateDto{Name: "Widget", CategoryID: 3, SupplierID: 4, Price: decimal.RequireFromString("9.99"), Quantity: 1},
		},
		{
			name: "Success - free product",
			dto:  ProductCreateDto{Name: "Sample", Price: decimal.Zero, Quantity: 10},
		},
		{
			name:        "Error - empty name",
			dto:         ProductCreateDto{Name: "   ", Price: decimal.RequireFromString("1"), Quantity: 1},
			expectError: lerrors.ErrInvalidInput,
		},
		{
			name:        "Error - negative price",
			dto:         ProductCreateDto{Name: "Widget", Price: decimal.RequireFromString("-0.01"), Quantity: 1},
			expectError: lerrors.ErrInvalidInput,
		},
		{
			name:        "Error - zero quantity",
			dto:         ProductCreateDto{Name: "Widget", Price: decimal.RequireFromString("1"), Quantity: 0},
			expectError: lerrors.ErrInvalidInput,
		},
		{
			name: "Success - trailing zeros",
			dto:  ProductCreateDto{Name: "Widget", Price: decimal.RequireFromString("1.500"), Quantity: 1},
		},
		{
			name:        "Error - more than two decimal places",
			dto:         ProductCreateDto{Name: "Widget", Price: decimal.RequireFromString("1.234"), Quantity: 1},
			expectError: lerrors.ErrInvalidInput,
		},
		{
			name:        "Error - price out of range",
			dto:         ProductCreateDto{Name: "Widget", Price: decimal.RequireFromString("10000000000"), Quantity: 1},
			expectError: lerrors.ErrInvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, _ := newTestService(t)
			// when
			created, err := svc.AddProduct(context.Background(), tc.dto)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, created)
				products, listErr := svc.ListProducts(context.Background(), 0, 0)
				require.NoError(t, listErr)
				assert.Empty(t, products)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, created.ID)
			assert.Equal(t, tc.dto.Name, created.Name)
			assert.Equal(t, tc.dto.CategoryID, created.CategoryID)
			assert.Equal(t, tc.dto.SupplierID, created.SupplierID)
			assert.True(t, tc.dto.Price.Equal(created.Price))
			assert.Equal(t, tc.dto.Quantity, created.Quantity)
		})
	}
}

func Test_LedgerService_RecordSale(t *testing.T) {
	testCases := []struct {
		name        string
		stock       int32
		dto         func(productID int64) SaleCreateDto
		expectError error
		expectedQty int32
		expectedTxs int
	}{
		{
			name:  "Success - partial",
			stock: 10,
			dto: func(id int64) SaleCreateDto {
				return SaleCreateDto{ProductID: id, CustomerID: 1, Quantity: 4}
			},
			expectedQty: 6,
			expectedTxs: 1,
		},
		{
			name:  "Success - whole stock",
			stock: 3,
			dto: func(id int64) SaleCreateDto {
				return SaleCreateDto{ProductID: id, CustomerID: 2, Quantity: 3, Date: "2024-12-31"}
			},
			expectedQty: 0,
			expectedTxs: 1,
		},
		{
			name:  "Error - insufficient stock",
			stock: 3,
			dto: func(id int64) SaleCreateDto {
				return SaleCreateDto{ProductID: id, CustomerID: 1, Quantity: 4}
			},
			expectError: lerrors.ErrInsufficientStock,
			expectedQty: 3,
		},
		{
			name:  "Error - zero quantity",
			stock: 3,
			dto: func(id int64) SaleCreateDto {
				return SaleCreateDto{ProductID: id, CustomerID: 1, Quantity: 0}
			},
			expectError: lerrors.ErrInvalidInput,
			expectedQty: 3,
		},
		{
			name:  "Error - malformed date",
			stock: 3,
			dto: func(id int64) SaleCreateDto {
				return SaleCreateDto{ProductID: id, CustomerID: 1, Quantity: 1, Date: "31/12/2024"}
			},
			expectError: lerrors.ErrInvalidInput,
			expectedQty: 3,
		},
		{
			name:  "Error - unknown product",
			stock: 3,
			dto: func(id int64) SaleCreateDto {
				return SaleCreateDto{ProductID: id + 100, CustomerID: 1, Quantity: 1}
			},
			expectError: lerrors.ErrProductNotFound,
			expectedQty: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, _ := newTestService(t)
			p := addProduct(t, svc, "Widget", tc.stock)
			dto := tc.dto(p.ID)

			// when
			sale, err := svc.RecordSale(context.Background(), dto)

			// then
			assert.Equal(t, tc.expectedQty, quantityOf(t, svc, p.ID))
			assert.Equal(t, tc.expectedTxs, ledgerSize(t, svc))
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, sale)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, sale.TransactionID)
			assert.Equal(t, dto.ProductID, sale.ProductID)
			assert.Equal(t, dto.CustomerID, sale.CustomerID)
			assert.Equal(t, dto.Quantity, sale.Quantity)
			assert.Equal(t, tc.expectedQty, sale.RemainingQuantity)
			expectedDate := dto.Date
			if expectedDate == "" {
				expectedDate = fixedNow.Format(DateLayout)
			}
			assert.Equal(t, expectedDate, sale.Date)
		})
	}
}

func Test_LedgerService_RecordSale_Concurrent(t *testing.T) {
	testCases := []struct {
		buyers int
		stock  int32
	}{
		{buyers: 20, stock: 5},
		{buyers: 5, stock: 20},
		{buyers: 8, stock: 8},
	}
	for _, tc := range testCases {
		// given
		svc, _ := newTestService(t)
		p := addProduct(t, svc, "Hot item", tc.stock)

		// when
		var (
			mu        sync.Mutex
			successes int
		)
		var g errgroup.Group
		for range tc.buyers {
			g.Go(func() error {
				_, err := svc.RecordSale(context.Background(), SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1})
				if errors.Is(err, lerrors.ErrInsufficientStock) {
					return nil
				}
				if err != nil {
					return err
				}
				mu.Lock()
				successes++
				mu.Unlock()
				return nil
			})
		}
		require.NoError(t, g.Wait())

		// then
		expected := min(tc.buyers, int(tc.stock))
		assert.Equal(t, expected, successes)
		assert.Equal(t, tc.stock-int32(expected), quantityOf(t, svc, p.ID))
		assert.Equal(t, expected, ledgerSize(t, svc))
	}
}

func Test_LedgerService_AdjustStock(t *testing.T) {
	testCases := []struct {
		name        string
		missing     bool
		price       string
		quantity    int32
		expectError error
	}{
		{name: "Success", price: "3.75", quantity: 42},
		{name: "Success - to zero", price: "0", quantity: 0},
		{name: "Error - negative quantity", price: "1", quantity: -1, expectError: lerrors.ErrInvalidInput},
		{name: "Error - negative price", price: "-1", quantity: 1, expectError: lerrors.ErrInvalidInput},
		{name: "Success - largest price", price: "9999999999.99", quantity: 1},
		{name: "Error - fractional cents", price: "0.005", quantity: 1, expectError: lerrors.ErrInvalidInput},
		{name: "Error - price out of range", price: "10000000000.00", quantity: 1, expectError: lerrors.ErrInvalidInput},
		{name: "Error - product not found", missing: true, price: "1", quantity: 1, expectError: lerrors.ErrProductNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, _ := newTestService(t)
			p := addProduct(t, svc, "Widget", 5)
			id := p.ID
			if tc.missing {
				id = 999
			}
			price := decimal.RequireFromString(tc.price)

			// when
			first, err := svc.AdjustStock(context.Background(), id, price, tc.quantity)

			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Equal(t, int32(5), quantityOf(t, svc, p.ID))
				return
			}
			require.NoError(t, err)
			second, err := svc.AdjustStock(context.Background(), id, price, tc.quantity)
			require.NoError(t, err)
			assert.Equal(t, first, second, "adjusting twice with the same values is idempotent")
			assert.Equal(t, tc.quantity, quantityOf(t, svc, id))
			assert.Zero(t, ledgerSize(t, svc))
		})
	}
}

func Test_LedgerService_RemoveProduct(t *testing.T) {
	t.Run("Success - keeps ledger rows", func(t *testing.T) {
		// given
		svc, _ := newTestService(t)
		p := addProduct(t, svc, "Widget", 5)
		_, err := svc.RecordSale(context.Background(), SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1})
		require.NoError(t, err)

		// when
		name, err := svc.RemoveProduct(context.Background(), p.ID)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Widget", name)
		_, err = svc.FindProduct(context.Background(), p.ID)
		assert.ErrorIs(t, err, lerrors.ErrProductNotFound)
		assert.Equal(t, 1, ledgerSize(t, svc))
	})

	t.Run("Error - not found leaves state unchanged", func(t *testing.T) {
		// given
		svc, _ := newTestService(t)
		p := addProduct(t, svc, "Widget", 5)

		// when
		name, err := svc.RemoveProduct(context.Background(), p.ID+1)

		// then
		assert.ErrorIs(t, err, lerrors.ErrProductNotFound)
		assert.Empty(t, name)
		assert.Equal(t, int32(5), quantityOf(t, svc, p.ID))
	})

	t.Run("Error - strict removal with sales", func(t *testing.T) {
		// given
		svc, _ := newTestService(t, WithStrictRemoval(true))
		sold := addProduct(t, svc, "Sold", 5)
		unsold := addProduct(t, svc, "Unsold", 5)
		_, err := svc.RecordSale(context.Background(), SaleCreateDto{ProductID: sold.ID, CustomerID: 1, Quantity: 1})
		require.NoError(t, err)

		// when
		_, errSold := svc.RemoveProduct(context.Background(), sold.ID)
		_, errUnsold := svc.RemoveProduct(context.Background(), unsold.ID)

		// then
		assert.ErrorIs(t, errSold, lerrors.ErrProductInUse)
		assert.Equal(t, int32(4), quantityOf(t, svc, sold.ID))
		assert.NoError(t, errUnsold)
	})
}

func Test_LedgerService_QuantityNeverNegative(t *testing.T) {
	// given
	svc, _ := newTestService(t)
	p := addProduct(t, svc, "Widget", 3)
	ctx := context.Background()

	// when
	steps := []func() error{
		func() error { _, err := svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 2}); return err },
		func() error { _, err := svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 2}); return err },
		func() error { _, err := svc.AdjustStock(ctx, p.ID, decimal.Zero, -5); return err },
		func() error { _, err := svc.AdjustStock(ctx, p.ID, decimal.Zero, 1); return err },
		func() error { _, err := svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1}); return err },
		func() error { _, err := svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1}); return err },
	}

	// then
	for _, step := range steps {
		_ = step()
		assert.GreaterOrEqual(t, quantityOf(t, svc, p.ID), int32(0))
	}
	assert.Equal(t, int32(0), quantityOf(t, svc, p.ID))
}

func Test_LedgerService_LowStockReport(t *testing.T) {
	// given
	svc, _ := newTestService(t)
	addProduct(t, svc, "A", 3)
	b := addProduct(t, svc, "B", 10)
	addProduct(t, svc, "C", 4)

	// when
	report := svc.LowStockReport(context.Background(), 0)

	// then
	collect := func() []LowStockItem {
		var items []LowStockItem
		for item, err := range report {
			require.NoError(t, err)
			items = append(items, item)
		}
		return items
	}
	assert.Equal(t, []LowStockItem{{"A", 3}, {"C", 4}}, collect())

	// restarting reads current stock
	_, err := svc.AdjustStock(context.Background(), b.ID, decimal.Zero, 1)
	require.NoError(t, err)
	assert.Equal(t, []LowStockItem{{"A", 3}, {"B", 1}, {"C", 4}}, collect())

	// a custom threshold
	var names []string
	for item, err := range svc.LowStockReport(context.Background(), 4) {
		require.NoError(t, err)
		names = append(names, item.ProductName)
	}
	assert.Equal(t, []string{"A", "B"}, names)
}

func Test_LedgerService_LowStockReport_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	addProduct(t, svc, "Plenty", 50)

	count := 0
	for _, err := range svc.LowStockReport(context.Background(), 5) {
		require.NoError(t, err)
		count++
	}
	assert.Zero(t, count)
}

func Test_LedgerService_SalesReport(t *testing.T) {
	// given
	svc, _ := newTestService(t)
	kept := addProduct(t, svc, "Kept", 10)
	removed := addProduct(t, svc, "Removed", 10)
	ctx := context.Background()
	for _, dto := range []SaleCreateDto{
		{ProductID: kept.ID, CustomerID: 1, Quantity: 1, Date: "2025-01-01"},
		{ProductID: kept.ID, CustomerID: 2, Quantity: 2, Date: "2025-02-01"},
		{ProductID: removed.ID, CustomerID: 1, Quantity: 3, Date: "2025-03-01"},
		{ProductID: kept.ID, CustomerID: 99, Quantity: 1, Date: "2025-04-01"},
	} {
		_, err := svc.RecordSale(ctx, dto)
		require.NoError(t, err)
	}
	_, err := svc.RemoveProduct(ctx, removed.ID)
	require.NoError(t, err)

	// when
	var items []SaleReportItem
	for item, err := range svc.SalesReport(ctx) {
		require.NoError(t, err)
		items = append(items, item)
	}

	// then
	assert.Equal(t, []SaleReportItem{
		{ProductName: "Kept", QuantitySold: 2, Date: "2025-02-01", CustomerName: "Bob"},
		{ProductName: "Kept", QuantitySold: 1, Date: "2025-01-01", CustomerName: "Alice"},
	}, items)
}

func Test_LedgerService_ReportFailure(t *testing.T) {
	// given
	svc, st := newTestService(t)
	st.FailWith(lerrors.ErrConnectionFailure)

	// when
	var errs []error
	for _, err := range svc.SalesReport(context.Background()) {
		errs = append(errs, err)
	}

	// then
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], lerrors.ErrConnectionFailure)
}

func Test_LedgerService_PublishesStockChanges(t *testing.T) {
	// given
	pub := new(mockPublisher)
	svc, _ := newTestService(t, WithPublisher(pub))
	p := addProduct(t, svc, "Widget", 5)
	pub.On("Publish", mock.Anything, events.StockChangedEvent{
		ProductID: p.ID, ProductName: "Widget", Quantity: 3, Reason: events.ReasonSale, TransactionID: 1, OccurredAt: fixedNow,
	}).Return(nil).Once()
	pub.On("Publish", mock.Anything, events.StockChangedEvent{
		ProductID: p.ID, ProductName: "Widget", Quantity: 10, Reason: events.ReasonAdjustment, OccurredAt: fixedNow,
	}).Return(errors.New("nats down")).Once()

	// when
	_, saleErr := svc.RecordSale(context.Background(), SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 2})
	_, adjErr := svc.AdjustStock(context.Background(), p.ID, decimal.RequireFromString("1"), 10)

	// then
	require.NoError(t, saleErr)
	require.NoError(t, adjErr, "publish failure must not fail a committed change")
	pub.AssertExpectations(t)
}

func Test_LedgerService_RecordSale_Idempotent(t *testing.T) {
	// given
	mr := miniredis.RunT(t)
	client, err := idempotency.NewClient(context.Background(), mr.Addr(), 0, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	svc, _ := newTestService(t, WithIdempotency(idempotency.NewRedisStore(client, time.Hour)))
	p := addProduct(t, svc, "Widget", 5)
	ctx := context.Background()

	// when
	first, err := svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 2, IdempotencyKey: "abc"})
	require.NoError(t, err)
	replay, err := svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 2, IdempotencyKey: "abc"})
	require.NoError(t, err)

	// then
	assert.Equal(t, first.TransactionID, replay.TransactionID)
	assert.True(t, replay.Replayed)
	assert.Equal(t, int32(3), quantityOf(t, svc, p.ID))
	assert.Equal(t, 1, ledgerSize(t, svc))

	// a failed sale releases its key
	_, err = svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 9, IdempotencyKey: "retry"})
	require.ErrorIs(t, err, lerrors.ErrInsufficientStock)
	sale, err := svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 3, IdempotencyKey: "retry"})
	require.NoError(t, err)
	assert.False(t, sale.Replayed)
	assert.Equal(t, int32(0), sale.RemainingQuantity)

	// an in-flight key is rejected
	require.NoError(t, mr.Set("stockledger:idem:busy", "\x00pending"))
	_, err = svc.RecordSale(ctx, SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1, IdempotencyKey: "busy"})
	assert.ErrorIs(t, err, lerrors.ErrDuplicateRequest)
}

func Test_LedgerService_RecordSale_IdempotentAfterCancel(t *testing.T) {
	// given
	mr := miniredis.RunT(t)
	client, err := idempotency.NewClient(context.Background(), mr.Addr(), 0, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	pub := new(mockPublisher)
	svc, _ := newTestService(t,
		WithIdempotency(idempotency.NewRedisStore(client, time.Hour)),
		WithPublisher(pub),
	)
	p := addProduct(t, svc, "Widget", 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the client goes away right after the sale commits
	pub.On("Publish", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(nil)
	dto := SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 2, IdempotencyKey: "gone"}

	// when
	first, err := svc.RecordSale(ctx, dto)
	require.NoError(t, err)
	retry, err := svc.RecordSale(context.Background(), dto)

	// then
	require.NoError(t, err, "a committed sale must not leave its key pending")
	assert.True(t, retry.Replayed)
	assert.Equal(t, first.TransactionID, retry.TransactionID)
	assert.Equal(t, int32(3), quantityOf(t, svc, p.ID))
	assert.Equal(t, 1, ledgerSize(t, svc))
}

func Test_LedgerService_SalesCounterExported(t *testing.T) {
	// given
	reg := prometheus.NewRegistry()
	mp, err := telemetry.NewMeterProvider("ledger", reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	svc, _ := newTestService(t, WithMeterProvider(mp))
	p := addProduct(t, svc, "Widget", 5)

	// when
	_, err = svc.RecordSale(context.Background(), SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1})
	require.NoError(t, err)

	// then
	families, err := reg.Gather()
	require.NoError(t, err)
	recorded := -1.0
	for _, family := range families {
		if family.GetName() == "ledger_sales_recorded_total" {
			require.NotEmpty(t, family.GetMetric())
			recorded = family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), recorded)
}

func Test_LedgerService_Metrics(t *testing.T) {
	// given
	reg := prometheus.NewRegistry()
	svc, _ := newTestService(t, WithMetrics(metrics.New(reg)))
	p := addProduct(t, svc, "Widget", 1)

	// when
	_, _ = svc.RecordSale(context.Background(), SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1})
	_, _ = svc.RecordSale(context.Background(), SaleCreateDto{ProductID: p.ID, CustomerID: 1, Quantity: 1})

	// then
	families, err := reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "stockledger_operations_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == "record_sale" {
				outcomes[labels["outcome"]] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"ok": 1, "insufficient_stock": 1}, outcomes)
}

func Test_LedgerService_ListReference(t *testing.T) {
	svc, _ := newTestService(t)

	customers, err := svc.ListReference(context.Background(), "customers")
	require.NoError(t, err)
	assert.Equal(t, []ReferenceDto{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}, customers)

	_, err = svc.ListReference(context.Background(), "products")
	assert.ErrorIs(t, err, lerrors.ErrUnknownReference)
}
