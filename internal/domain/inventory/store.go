package inventory

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/auth"
	"github.com/xenking/kart-pos/internal/domain/product"
)

// Summary is the set of aggregate tiles shown above the inventory table.
type Summary struct {
	ProductCount  int
	CategoryCount int
	LowStockCount int
	TotalValue    decimal.Decimal
	AveragePrice  decimal.Decimal
}

// Store manages the product catalog with stock levels.
type Store struct {
	products product.Repository
	policy   Policy
}

// NewStore returns a Store backed by products.
func NewStore(products product.Repository, policy Policy) *Store {
	return &Store{products: products, policy: policy}
}

// Policy returns the stock thresholds in effect.
func (s *Store) Policy() Policy {
	return s.policy
}

// AddProduct validates in and stores it under a fresh ID.
func (s *Store) AddProduct(ctx context.Context, in ProductInput) (*product.Product, error) {
	p, err := in.Build(0)
	if err != nil {
		return nil, err
	}

	created, err := s.products.Create(ctx, p)
	if err != nil {
		if errors.Is(err, product.ErrDuplicateSKU) {
			return nil, fieldError("sku", "already exists")
		}
		return nil, errors.Wrap(err, "create product")
	}
	return created, nil
}

// UpdateProduct replaces every editable field of product id.
func (s *Store) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*product.Product, error) {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	p, err := in.Build(id)
	if err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, product.ErrDuplicateSKU) {
			return nil, fieldError("sku", "already exists")
		}
		return nil, errors.Wrapf(err, "update product %d", id)
	}
	return &p, nil
}

// DeleteProduct removes product id. The caller must be an admin and must
// have confirmed the deletion.
func (s *Store) DeleteProduct(ctx context.Context, principal auth.Principal, id int64, confirmed bool) error {
	if err := principal.Require(auth.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return errors.Wrapf(err, "get product %d", id)
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete product %d", id)
	}
	return nil
}

// GetProduct returns product id.
func (s *Store) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return p, nil
}

// Search returns the products whose name or SKU contains term,
// case-insensitively, restricted to category unless it is empty or "all".
// The result is never nil.
func (s *Store) Search(ctx context.Context, term, category string) ([]product.Product, error) {
	cat, err := parseCategoryFilter(category)
	if err != nil {
		return nil, err
	}

	items, err := s.products.List(ctx, product.Filter{
		Term:     strings.TrimSpace(term),
		Category: cat,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	if items == nil {
		items = []product.Product{}
	}
	return items, nil
}

// Summary computes the aggregate tiles over the whole catalog.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	items, err := s.products.List(ctx, product.Filter{})
	if err != nil {
		return Summary{}, errors.Wrap(err, "list products")
	}
	return Summarize(items, s.policy), nil
}

// Summarize aggregates items. The average price of an empty list is zero.
func Summarize(items []product.Product, policy Policy) Summary {
	sum := Summary{
		ProductCount: len(items),
		TotalValue:   decimal.Zero,
		AveragePrice: decimal.Zero,
	}

	categories := make(map[product.Category]struct{})
	priceTotal := decimal.Zero
	for _, p := range items {
		categories[p.Category] = struct{}{}
		if policy.LowStock(p.Stock) {
			sum.LowStockCount++
		}
		sum.TotalValue = sum.TotalValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
		priceTotal = priceTotal.Add(p.Price)
	}
	sum.CategoryCount = len(categories)
	sum.TotalValue = sum.TotalValue.Round(2)
	if len(items) > 0 {
		sum.AveragePrice = priceTotal.Div(decimal.NewFromInt(int64(len(items)))).Round(2)
	}
	return sum
}

func parseCategoryFilter(raw string) (product.Category, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == string(product.CategoryAll) {
		return product.CategoryAll, nil
	}
	cat := product.Category(raw)
	if !cat.Valid() {
		return "", fieldError("category", "is not a known category")
	}
	return cat, nil
}

// StockLevel classifies p against the table thresholds.
func (s *Store) StockLevel(p product.Product) StockLevel {
	return s.policy.Level(p.Stock)
}

// Categories lists the assignable categories in display order.
func (s *Store) Categories() []product.Category {
	return product.Categories()
}
