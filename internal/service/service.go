// Package service implements the inventory ledger engine and its report projections.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/abgdnv/stockledger/internal/metrics"
	"github.com/abgdnv/stockledger/internal/store"
	"github.com/abgdnv/stockledger/pkg/messaging"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultLowStockThreshold int32 = 5

const instrumentationName = "github.com/abgdnv/stockledger/internal/service"

var tracer = otel.Tracer(instrumentationName)

// LedgerService defines the ledger engine and report operations.
type LedgerService interface {
	// AddProduct creates a product and returns it with its assigned ID.
	// Returns ErrInvalidInput for an empty name, a negative price or a quantity below one.
	AddProduct(ctx context.Context, dto ProductCreateDto) (*ProductDto, error)

	// AdjustStock overwrites price and quantity of an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	AdjustStock(ctx context.Context, id int64, price decimal.Decimal, quantity int32) (*ProductDto, error)

	// RemoveProduct deletes a product and returns its name. Recorded sales are kept.
	// Returns ErrProductNotFound if no product exists with the given ID.
	RemoveProduct(ctx context.Context, id int64) (string, error)

	// RecordSale appends a sale to the ledger and decrements stock in one transaction.
	// Returns ErrInsufficientStock and changes nothing when stock does not cover the sale.
	RecordSale(ctx context.Context, dto SaleCreateDto) (*SaleDto, error)

	// LowStockReport yields products with quantity below threshold. A threshold of zero or less
	// selects the configured default.
	LowStockReport(ctx context.Context, threshold int32) iter.Seq2[LowStockItem, error]

	// SalesReport yields sales with product and customer names, newest first.
	SalesReport(ctx context.Context) iter.Seq2[SaleReportItem, error]

	FindProduct(ctx context.Context, id int64) (*ProductDto, error)
	ListProducts(ctx context.Context, offset, limit int32) ([]ProductDto, error)
	ListTransactions(ctx context.Context, offset, limit int32) ([]TransactionDto, error)
	ListReference(ctx context.Context, kind string) ([]ReferenceDto, error)
}

// Idempotency stores the outcome of sales carrying an idempotency key.
type Idempotency interface {
	Reserve(ctx context.Context, key string) ([]byte, error)
	Complete(ctx context.Context, key string, response []byte) error
	Release(ctx context.Context, key string) error
}

var _ LedgerService = (*Service)(nil)

// Service implements LedgerService on top of a store.Store.
type Service struct {
	store         store.Store
	publisher     messaging.Publisher
	idempotency   Idempotency
	metrics       *metrics.Metrics
	logger        *slog.Logger
	validate      *validator.Validate
	now           func() time.Time
	strictRemoval bool
	threshold     int32
	meterProvider metric.MeterProvider
	salesCounter  metric.Int64Counter
}

type Option func(*Service)

// WithPublisher sets where stock change events go.
func WithPublisher(p messaging.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithIdempotency(i Idempotency) Option {
	return func(s *Service) { s.idempotency = i }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMeterProvider sets where OpenTelemetry instruments are created. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStrictRemoval makes RemoveProduct reject products that have ledger rows.
func WithStrictRemoval(strict bool) Option {
	return func(s *Service) { s.strictRemoval = strict }
}

func WithLowStockThreshold(threshold int32) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// NewService creates a new instance of the ledger service.
func NewService(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         st,
		publisher:     messaging.NoopPublisher{},
		logger:        logger.With("component", "ledger"),
		validate:      validator.New(),
		now:           time.Now,
		threshold:     defaultLowStockThreshold,
		meterProvider: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}
	salesCounter, err := s.meterProvider.Meter(instrumentationName).
		Int64Counter("ledger_sales_recorded", metric.WithDescription("Total number of recorded sales"))
	if err != nil {
		panic(fmt.Sprintf("failed to create ledger_sales_recorded counter: %v", err))
	}
	s.salesCounter = salesCounter
	return s
}

// startSpan opens a span for op and returns a func that ends it and records metrics.
func (s *Service) startSpan(ctx context.Context, op string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ledger."+op, trace.WithSpanKind(trace.SpanKindInternal))
	return ctx, func(errp *error) {
		err := *errp
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.Observe(op, start, outcome(err))
	}
}

// outcome turns an error into a metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, lerrors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, lerrors.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, lerrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, lerrors.ErrProductInUse):
		return "in_use"
	case errors.Is(err, lerrors.ErrDuplicateRequest):
		return "duplicate"
	case errors.Is(err, lerrors.ErrConnectionFailure):
		return "connection_failure"
	default:
		return "persistence_failure"
	}
}

func toProductDto(p *store.Product) *ProductDto {
	return &ProductDto{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		SupplierID: p.SupplierID,
		Price:      p.Price,
		Quantity:   p.Quantity,
	}
}
