package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/sale"
)

var (
	_ product.Repository = (*MemoryProductRepository)(nil)
	_ sale.Repository    = (*MemorySaleRepository)(nil)
)

// MemoryProductRepository is the default product store. Products are kept in
// ID order, which is also insertion order since new IDs are always max + 1.
type MemoryProductRepository struct {
	mu    sync.RWMutex
	items []product.Product
}

// NewMemoryProductRepository returns an empty repository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{}
}

func (r *MemoryProductRepository) List(_ context.Context, f product.Filter) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryProductRepository) GetByID(_ context.Context, id int64) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(id)
	if i < 0 {
		return nil, product.ErrNotFound
	}
	p := r.items[i]
	return &p, nil
}

func (r *MemoryProductRepository) Create(_ context.Context, p product.Product) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.skuTaken(p.SKU, 0) {
		return nil, product.ErrDuplicateSKU
	}
	var maxID int64
	for _, it := range r.items {
		maxID = max(maxID, it.ID)
	}
	p.ID = maxID + 1
	r.items = append(r.items, p)
	return &p, nil
}

func (r *MemoryProductRepository) Update(_ context.Context, p product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(p.ID)
	if i < 0 {
		return product.ErrNotFound
	}
	if r.skuTaken(p.SKU, p.ID) {
		return product.ErrDuplicateSKU
	}
	r.items[i] = p
	return nil
}

func (r *MemoryProductRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return product.ErrNotFound
	}
	r.items = slices.Delete(r.items, i, i+1)
	return nil
}

func (r *MemoryProductRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryProductRepository) index(id int64) int {
	return slices.IndexFunc(r.items, func(p product.Product) bool { return p.ID == id })
}

// skuTaken reports whether sku belongs to a product other than except.
func (r *MemoryProductRepository) skuTaken(sku string, except int64) bool {
	return slices.ContainsFunc(r.items, func(p product.Product) bool {
		return p.SKU == sku && p.ID != except
	})
}

// MemorySaleRepository is the default sale journal.
type MemorySaleRepository struct {
	mu    sync.Mutex
	sales []sale.Sale
}

// NewMemorySaleRepository returns an empty journal.
func NewMemorySaleRepository() *MemorySaleRepository {
	return &MemorySaleRepository{}
}

func (r *MemorySaleRepository) Create(_ context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	cp.Lines = slices.Clone(s.Lines)
	r.sales = append(r.sales, cp)
	return nil
}

// Sales returns a copy of the journal in completion order.
func (r *MemorySaleRepository) Sales() []sale.Sale {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sales)
}
