package store

import (
	"context"
	"errors"
	"fmt"
	"net"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// classify wraps a driver error with ErrConnectionFailure when the database could not
// be reached in time, and with ErrPersistence otherwise.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, lerrors.ErrConnectionFailure, err)
	}
	return fmt.Errorf("%s: %w: %w", op, lerrors.ErrPersistence, err)
}

func isConnectionError(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
