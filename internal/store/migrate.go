package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// requiredColumns lists the columns the engine reads and writes, per table.
var requiredColumns = map[string][]string{
	"products":     {"product_id", "product_name", "category_id", "supplier_id", "price", "quantity"},
	"transactions": {"transaction_id", "product_id", "customer_id", "transaction_date", "quantity_sold"},
	"customers":    {"customer_id", "customer_name"},
}

// Migrate applies all pending embedded migrations to the database at databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w: %w", lerrors.ErrConnectionFailure, err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w: %w", lerrors.ErrPersistence, err)
	}
	return nil
}

// CheckSchema verifies once that every column the engine relies on exists.
func (p *PgStore) CheckSchema(ctx context.Context) error {
	rows, err := p.db.Query(ctx,
		`SELECT table_name, column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ANY($1)`,
		[]string{"products", "transactions", "customers"})
	if err != nil {
		return classify("read schema", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return classify("read schema", err)
		}
		present[table+"."+column] = true
	}
	if err := rows.Err(); err != nil {
		return classify("read schema", err)
	}

	var missing []string
	for table, columns := range requiredColumns {
		for _, column := range columns {
			if !present[table+"."+column] {
				missing = append(missing, table+"."+column)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: schema is missing columns: %s", lerrors.ErrPersistence, strings.Join(missing, ", "))
	}
	return nil
}
