// Package errors declares the typed failures returned by the ledger engine.
package errors

import "errors"

var (
	// ErrConnectionFailure means the store could not be reached or timed out.
	ErrConnectionFailure = errors.New("store connection failure")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrPersistence is any store failure after input validation passed.
	ErrPersistence = errors.New("persistence failure")
	// ErrProductInUse rejects removal of a product with ledger rows when strict removal is on.
	ErrProductInUse = errors.New("product has recorded transactions")
	// ErrDuplicateRequest means a sale with the same idempotency key is still in progress.
	ErrDuplicateRequest = errors.New("duplicate request in progress")
	ErrUnknownReference = errors.New("unknown reference table")
)
