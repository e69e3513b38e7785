package store

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	lerrors "github.com/abgdnv/stockledger/internal/errors"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store. Transactions are serialised by a mutex and
// a failed transaction restores the snapshot taken when it began.
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[int64]Product
	transactions []Transaction
	reference    map[ReferenceKind][]ReferenceItem
	nextProduct  int64
	nextTx       int64
	// failWith, when set, is returned by every operation.
	failWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[int64]Product),
		reference: make(map[ReferenceKind][]ReferenceItem),
	}
}

// AddReference seeds a reference table row.
func (m *MemoryStore) AddReference(kind ReferenceKind, id int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reference[kind] = append(m.reference[kind], ReferenceItem{ID: id, Name: name})
}

// FailWith makes every following call return err. Pass nil to recover.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

type memorySnapshot struct {
	products     map[int64]Product
	transactions []Transaction
	nextProduct  int64
	nextTx       int64
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if err := ctx.Err(); err != nil {
		return classify("begin transaction", err)
	}

	snap := memorySnapshot{
		products:     maps.Clone(m.products),
		transactions: slices.Clone(m.transactions),
		nextProduct:  m.nextProduct,
		nextTx:       m.nextTx,
	}
	if err := fn(&memoryTx{store: m}); err != nil {
		m.products = snap.products
		m.transactions = snap.transactions
		m.nextProduct = snap.nextProduct
		m.nextTx = snap.nextTx
		return err
	}
	return nil
}

func (m *MemoryStore) FindProduct(_ context.Context, id int64) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.products[id]
	if !ok {
		return nil, lerrors.ErrProductNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListProducts(_ context.Context, offset, limit int32) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return page(m.sortedProducts(), offset, limit), nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, offset, limit int32) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return page(slices.Clone(m.transactions), offset, limit), nil
}

func (m *MemoryStore) LowStock(_ context.Context, threshold int32) iter.Seq2[Product, error] {
	return func(yield func(Product, error) bool) {
		m.mu.RLock()
		if m.failWith != nil {
			err := m.failWith
			m.mu.RUnlock()
			yield(Product{}, err)
			return
		}
		products := m.sortedProducts()
		m.mu.RUnlock()

		for _, p := range products {
			if p.Quantity < threshold {
				if !yield(p, nil) {
					return
				}
			}
		}
	}
}

func (m *MemoryStore) SalesHistory(_ context.Context) iter.Seq2[SaleRow, error] {
	return func(yield func(SaleRow, error) bool) {
		m.mu.RLock()
		if m.failWith != nil {
			err := m.failWith
			m.mu.RUnlock()
			yield(SaleRow{}, err)
			return
		}
		customers := make(map[int64]string)
		for _, c := range m.reference[Customers] {
			customers[c.ID] = c.Name
		}
		rows := make([]SaleRow, 0, len(m.transactions))
		for _, t := range m.transactions {
			p, ok := m.products[t.ProductID]
			if !ok {
				continue
			}
			name, ok := customers[t.CustomerID]
			if !ok {
				continue
			}
			rows = append(rows, SaleRow{
				TransactionID: t.ID,
				ProductName:   p.Name,
				QuantitySold:  t.QuantitySold,
				Date:          t.Date,
				CustomerName:  name,
			})
		}
		m.mu.RUnlock()

		slices.SortStableFunc(rows, func(a, b SaleRow) int {
			return b.Date.Compare(a.Date)
		})
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (m *MemoryStore) ListReference(_ context.Context, kind ReferenceKind) ([]ReferenceItem, error) {
	if !ValidReferenceKind(kind) {
		return nil, fmt.Errorf("%w: %s", lerrors.ErrUnknownReference, kind)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	items := slices.Clone(m.reference[kind])
	if items == nil {
		items = make([]ReferenceItem, 0)
	}
	return items, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failWith
}

func (m *MemoryStore) sortedProducts() []Product {
	products := slices.Collect(maps.Values(m.products))
	slices.SortFunc(products, func(a, b Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return products
}

func page[T any](items []T, offset, limit int32) []T {
	start := min(int(offset), len(items))
	end := len(items)
	if limit > 0 {
		end = min(start+int(limit), len(items))
	}
	return items[start:end]
}

// memoryTx operates on the store while WithTx holds its lock.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) GetProductForUpdate(_ context.Context, id int64) (*Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return nil, lerrors.ErrProductNotFound
	}
	return &p, nil
}

func (t *memoryTx) InsertProduct(_ context.Context, np NewProduct) (*Product, error) {
	t.store.nextProduct++
	p := Product{
		ID:         t.store.nextProduct,
		Name:       np.Name,
		CategoryID: np.CategoryID,
		SupplierID: np.SupplierID,
		Price:      np.Price,
		Quantity:   np.Quantity,
	}
	t.store.products[p.ID] = p
	return &p, nil
}

func (t *memoryTx) UpdateProduct(_ context.Context, id int64, price decimal.Decimal, quantity int32) (*Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return nil, lerrors.ErrProductNotFound
	}
	if quantity < 0 {
		return nil, fmt.Errorf("update product: %w: quantity check violated", lerrors.ErrPersistence)
	}
	p.Price = price
	p.Quantity = quantity
	t.store.products[id] = p
	return &p, nil
}

func (t *memoryTx) DecrementStock(_ context.Context, id int64, qty int32) (int32, error) {
	p, ok := t.store.products[id]
	if !ok || p.Quantity < qty {
		return 0, lerrors.ErrInsufficientStock
	}
	p.Quantity -= qty
	t.store.products[id] = p
	return p.Quantity, nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, nt NewTransaction) (*Transaction, error) {
	t.store.nextTx++
	tr := Transaction{
		ID:           t.store.nextTx,
		ProductID:    nt.ProductID,
		CustomerID:   nt.CustomerID,
		Date:         nt.Date,
		QuantitySold: nt.QuantitySold,
	}
	t.store.transactions = append(t.store.transactions, tr)
	return &tr, nil
}

func (t *memoryTx) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := t.store.products[id]; !ok {
		return lerrors.ErrProductNotFound
	}
	delete(t.store.products, id)
	return nil
}

func (t *memoryTx) CountTransactions(_ context.Context, productID int64) (int64, error) {
	var count int64
	for _, tr := range t.store.transactions {
		if tr.ProductID == productID {
			count++
		}
	}
	return count, nil
}
