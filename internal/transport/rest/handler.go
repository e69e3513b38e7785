// Package rest provides HTTP handlers for the ledger engine and its reports.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/abgdnv/stockledger/internal/service"
	"github.com/abgdnv/stockledger/pkg/config"
	"github.com/abgdnv/stockledger/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPageSize = 50
	// IdempotencyKeyHeader lets clients retry a sale safely.
	IdempotencyKeyHeader = "Idempotency-Key"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service   service.LedgerService
	pinger    Pinger
	rateLimit config.RateLimitConfig
	threshold int32
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandler creates a new Handler. threshold is the low stock default when the query omits it.
func NewHandler(svc service.LedgerService, pinger Pinger, rateLimit config.RateLimitConfig, threshold int32, logger *slog.Logger) *Handler {
	return &Handler{
		service:   svc,
		pinger:    pinger,
		rateLimit: rateLimit,
		threshold: threshold,
		validate:  validator.New(),
		logger:    logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the ledger service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.FindProduct)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/reference/{kind}", h.ListReference)
		r.Get("/reports/low-stock", h.LowStockReport)
		r.Get("/reports/sales", h.SalesReport)

		r.Group(func(r chi.Router) {
			if h.rateLimit.Requests > 0 {
				r.Use(httprate.LimitByIP(h.rateLimit.Requests, h.rateLimit.Window))
			}
			r.Post("/products", h.AddProduct)
			r.Put("/products/{id}/stock", h.AdjustStock)
			r.Delete("/products/{id}", h.RemoveProduct)
			r.Post("/sales", h.RecordSale)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// AddProduct handles the creation of a new product.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var dto service.ProductCreateDto
	if !h.decode(w, r, &dto) {
		return
	}
	created, err := h.service.AddProduct(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to add product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// AdjustStock overwrites price and quantity of a product.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var dto service.StockUpdateDto
	if !h.decode(w, r, &dto) {
		return
	}
	updated, err := h.service.AdjustStock(r.Context(), id, *dto.Price, *dto.Quantity)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to adjust stock")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// RemoveProduct deletes a product. Confirmation is up to the client.
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	name, err := h.service.RemoveProduct(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to remove product")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]any{"id": id, "name": name})
}

// RecordSale records a sale. A repeated Idempotency-Key replays the first response.
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var dto service.SaleCreateDto
	if !h.decode(w, r, &dto) {
		return
	}
	dto.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))

	sale, err := h.service.RecordSale(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to record sale")
		return
	}
	status := http.StatusCreated
	if sale.Replayed {
		status = http.StatusOK
	}
	web.RespondJSON(w, h.logger, status, sale)
}

func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	found, err := h.service.FindProduct(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve product")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := h.page(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListProducts(r.Context(), offset, limit)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to fetch products")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := h.page(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListTransactions(r.Context(), offset, limit)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to fetch transactions")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

func (h *Handler) ListReference(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListReference(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to fetch reference data")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// LowStockReport lists products below ?threshold= (default from configuration).
func (h *Handler) LowStockReport(w http.ResponseWriter, r *http.Request) {
	threshold, ok := web.ParseValidateGt(r, w, h.logger, "threshold", 0, h.threshold)
	if !ok {
		return
	}
	items := make([]service.LowStockItem, 0)
	for item, err := range h.service.LowStockReport(r.Context(), threshold) {
		if err != nil {
			h.respondServiceError(w, r, err, "Failed to build low stock report")
			return
		}
		items = append(items, item)
	}
	web.RespondJSON(w, h.logger, http.StatusOK, items)
}

func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	items := make([]service.SaleReportItem, 0)
	for item, err := range h.service.SalesReport(r.Context()) {
		if err != nil {
			h.respondServiceError(w, r, err, "Failed to build sales report")
			return
		}
		items = append(items, item)
	}
	web.RespondJSON(w, h.logger, http.StatusOK, items)
}

// HealthCheck answers 200 while the store is reachable.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Health check failed", "error", err)
		web.RespondJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) (offset, limit int32, ok bool) {
	limit, ok = web.ParseValidateGt(r, w, h.logger, "limit", 0, defaultPageSize)
	if !ok {
		return 0, 0, false
	}
	offset, ok = web.ParseValidateGte(r, w, h.logger, "offset", 0, 0)
	return offset, limit, ok
}

// decode reads the JSON body into dst and validates it, writing the error response on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondValidationError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) respondValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return
	}
	web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
}

// respondServiceError maps ledger errors to HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, lerrors.ErrInvalidInput):
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			h.respondValidationError(w, r, validationErrors)
			return
		}
		h.logger.WarnContext(ctx, message, "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, lerrors.ErrProductNotFound):
		h.logger.WarnContext(ctx, message, "error", err)
		web.RespondError(w, h.logger, http.StatusNotFound, "Product not found")
	case errors.Is(err, lerrors.ErrUnknownReference):
		web.RespondError(w, h.logger, http.StatusNotFound, "Unknown reference table")
	case errors.Is(err, lerrors.ErrInsufficientStock):
		h.logger.WarnContext(ctx, message, "error", err)
		web.RespondError(w, h.logger, http.StatusConflict, "Not enough stock available")
	case errors.Is(err, lerrors.ErrProductInUse):
		web.RespondError(w, h.logger, http.StatusConflict, "Product has recorded sales")
	case errors.Is(err, lerrors.ErrDuplicateRequest):
		web.RespondError(w, h.logger, http.StatusConflict, "A request with this idempotency key is in progress")
	case errors.Is(err, lerrors.ErrConnectionFailure):
		h.logger.ErrorContext(ctx, message, "error", err)
		web.RespondError(w, h.logger, http.StatusServiceUnavailable, "Store is unavailable")
	default:
		h.logger.ErrorContext(ctx, message, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, message)
	}
}
