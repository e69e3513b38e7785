package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const productColumns = "product_id, product_name, category_id, supplier_id, price::text, quantity"

const (
	findProductSQL      = "SELECT " + productColumns + " FROM products WHERE product_id = $1"
	findForUpdateSQL    = "SELECT " + productColumns + " FROM products WHERE product_id = $1 FOR UPDATE"
	listProductsSQL     = "SELECT " + productColumns + " FROM products ORDER BY product_id OFFSET $1 LIMIT $2"
	lowStockSQL         = "SELECT " + productColumns + " FROM products WHERE quantity < $1 ORDER BY product_id"
	insertProductSQL    = "INSERT INTO products (product_name, category_id, supplier_id, price, quantity) VALUES ($1, $2, $3, $4::numeric, $5) RETURNING " + productColumns
	updateProductSQL    = "UPDATE products SET price = $2::numeric, quantity = $3 WHERE product_id = $1 RETURNING " + productColumns
	decrementStockSQL   = "UPDATE products SET quantity = quantity - $2 WHERE product_id = $1 AND quantity >= $2 RETURNING quantity"
	deleteProductSQL    = "DELETE FROM products WHERE product_id = $1"
	countTransactionSQL = "SELECT count(*) FROM transactions WHERE product_id = $1"

	insertTransactionSQL = `INSERT INTO transactions (product_id, customer_id, transaction_date, quantity_sold)
VALUES ($1, $2, $3, $4)
RETURNING transaction_id, product_id, customer_id, transaction_date, quantity_sold`
	listTransactionsSQL = `SELECT transaction_id, product_id, customer_id, transaction_date, quantity_sold
FROM transactions ORDER BY transaction_id OFFSET $1 LIMIT $2`
	salesHistorySQL = `SELECT t.transaction_id, p.product_name, t.quantity_sold, t.transaction_date, c.customer_name
FROM transactions t
JOIN products p ON t.product_id = p.product_id
JOIN customers c ON t.customer_id = c.customer_id
ORDER BY t.transaction_date DESC, t.transaction_id`
)

// reference tables are addressed only through this whitelist
var referenceQueries = map[ReferenceKind]string{
	Categories: "SELECT category_id, category_name FROM categories ORDER BY category_id",
	Suppliers:  "SELECT supplier_id, supplier_name FROM suppliers ORDER BY supplier_id",
	Customers:  "SELECT customer_id, customer_name FROM customers ORDER BY customer_id",
}

// PgStore implements Store using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// WithTx runs fn in a READ COMMITTED transaction. Row locks taken inside fn make
// concurrent writers wait and then observe the committed row.
func (p *PgStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("begin transaction", err)
	}

	err = fn(&pgTx{tx: tx})
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, classify("rollback transaction", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

func (p *PgStore) FindProduct(ctx context.Context, id int64) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx, findProductSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lerrors.ErrProductNotFound
		}
		return nil, classify("find product", err)
	}
	return &product, nil
}

func (p *PgStore) ListProducts(ctx context.Context, offset, limit int32) ([]Product, error) {
	rows, err := p.db.Query(ctx, listProductsSQL, offset, limit)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, classify("scan product", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list products", err)
	}
	return products, nil
}

func (p *PgStore) ListTransactions(ctx context.Context, offset, limit int32) ([]Transaction, error) {
	rows, err := p.db.Query(ctx, listTransactionsSQL, offset, limit)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.CustomerID, &t.Date, &t.QuantitySold); err != nil {
			return nil, classify("scan transaction", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list transactions", err)
	}
	return transactions, nil
}

func (p *PgStore) LowStock(ctx context.Context, threshold int32) iter.Seq2[Product, error] {
	return func(yield func(Product, error) bool) {
		rows, err := p.db.Query(ctx, lowStockSQL, threshold)
		if err != nil {
			yield(Product{}, classify("low stock query", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			product, err := scanProduct(rows)
			if err != nil {
				yield(Product{}, classify("scan product", err))
				return
			}
			if !yield(product, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Product{}, classify("low stock query", err))
		}
	}
}

func (p *PgStore) SalesHistory(ctx context.Context) iter.Seq2[SaleRow, error] {
	return func(yield func(SaleRow, error) bool) {
		rows, err := p.db.Query(ctx, salesHistorySQL)
		if err != nil {
			yield(SaleRow{}, classify("sales history query", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row SaleRow
			if err := rows.Scan(&row.TransactionID, &row.ProductName, &row.QuantitySold, &row.Date, &row.CustomerName); err != nil {
				yield(SaleRow{}, classify("scan sale", err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(SaleRow{}, classify("sales history query", err))
		}
	}
}

func (p *PgStore) ListReference(ctx context.Context, kind ReferenceKind) ([]ReferenceItem, error) {
	query, ok := referenceQueries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", lerrors.ErrUnknownReference, kind)
	}
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, classify("list "+string(kind), err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ReferenceItem, error) {
		var item ReferenceItem
		err := row.Scan(&item.ID, &item.Name)
		return item, err
	})
	if err != nil {
		return nil, classify("list "+string(kind), err)
	}
	return items, nil
}

func (p *PgStore) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// pgTx implements Tx on top of a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, id int64) (*Product, error) {
	product, err := scanProduct(t.tx.QueryRow(ctx, findForUpdateSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lerrors.ErrProductNotFound
		}
		return nil, classify("lock product", err)
	}
	return &product, nil
}

func (t *pgTx) InsertProduct(ctx context.Context, np NewProduct) (*Product, error) {
	product, err := scanProduct(t.tx.QueryRow(ctx, insertProductSQL,
		np.Name, np.CategoryID, np.SupplierID, np.Price.String(), np.Quantity))
	if err != nil {
		return nil, classify("insert product", err)
	}
	return &product, nil
}

func (t *pgTx) UpdateProduct(ctx context.Context, id int64, price decimal.Decimal, quantity int32) (*Product, error) {
	product, err := scanProduct(t.tx.QueryRow(ctx, updateProductSQL, id, price.String(), quantity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lerrors.ErrProductNotFound
		}
		return nil, classify("update product", err)
	}
	return &product, nil
}

func (t *pgTx) DecrementStock(ctx context.Context, id int64, qty int32) (int32, error) {
	var remaining int32
	err := t.tx.QueryRow(ctx, decrementStockSQL, id, qty).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, lerrors.ErrInsufficientStock
		}
		return 0, classify("decrement stock", err)
	}
	return remaining, nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, nt NewTransaction) (*Transaction, error) {
	var tr Transaction
	err := t.tx.QueryRow(ctx, insertTransactionSQL, nt.ProductID, nt.CustomerID, nt.Date, nt.QuantitySold).
		Scan(&tr.ID, &tr.ProductID, &tr.CustomerID, &tr.Date, &tr.QuantitySold)
	if err != nil {
		return nil, classify("insert transaction", err)
	}
	return &tr, nil
}

func (t *pgTx) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return classify("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return lerrors.ErrProductNotFound
	}
	return nil
}

func (t *pgTx) CountTransactions(ctx context.Context, productID int64) (int64, error) {
	var count int64
	if err := t.tx.QueryRow(ctx, countTransactionSQL, productID).Scan(&count); err != nil {
		return 0, classify("count transactions", err)
	}
	return count, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.SupplierID, &price, &p.Quantity); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	p.Price = d
	return p, nil
}
