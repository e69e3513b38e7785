package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func Test_classify(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), expected: lerrors.ErrConnectionFailure},
		{name: "network", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, expected: lerrors.ErrConnectionFailure},
		{name: "constraint", err: &pgconn.PgError{Code: "23514", Message: "check violation"}, expected: lerrors.ErrPersistence},
		{name: "other", err: errors.New("syntax error"), expected: lerrors.ErrPersistence},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("op", tc.err)
			assert.ErrorIs(t, err, tc.expected)
			assert.ErrorIs(t, err, tc.err)
		})
	}
	assert.NoError(t, classify("op", nil))
}
