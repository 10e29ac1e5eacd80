package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrDuplicateSKU is returned by repositories when a write would violate SKU
// uniqueness.
var ErrDuplicateSKU = errors.New("sku already exists")

// DefaultImage is the image reference assigned when none is supplied.
const DefaultImage = "/placeholder.svg"

// Category is one of the fixed product groupings used by the register tabs
// and the inventory filter.
type Category string

const (
	CategoryClothing    Category = "clothing"
	CategoryAccessories Category = "accessories"
	CategoryHome        Category = "home"
	CategoryStationery  Category = "stationery"
	CategoryHealth      Category = "health"

	// CategoryAll is a filter value only; no product carries it.
	CategoryAll Category = "all"
)

// Categories lists the assignable categories in display order.
func Categories() []Category {
	return []Category{
		CategoryClothing,
		CategoryAccessories,
		CategoryHome,
		CategoryStationery,
		CategoryHealth,
	}
}

// Valid reports whether c is an assignable category. CategoryAll is not.
func (c Category) Valid() bool {
	switch c {
	case CategoryClothing, CategoryAccessories, CategoryHome, CategoryStationery, CategoryHealth:
		return true
	default:
		return false
	}
}

// Product is a stock-keeping item sold at the register.
type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Category Category
	Stock    int
	SKU      string
	Image    string
}

// Filter narrows a List call. Zero value matches everything.
type Filter struct {
	// Term is matched case-insensitively as a substring of name or SKU.
	Term string
	// Category restricts results; empty or CategoryAll disables the check.
	Category Category
}

// Repository defines storage for the product collection. Implementations
// must keep ID and SKU unique and return ErrNotFound for unknown IDs.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	// Create assigns the next sequential ID, stores p and returns the stored copy.
	Create(ctx context.Context, p Product) (*Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
