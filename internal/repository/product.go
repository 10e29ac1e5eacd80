package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xenking/kart-pos/internal/domain/product"
)

const (
	productColumns = `id, name, price, category, stock, sku, image`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR strpos(lower(name), lower($1)) > 0 OR strpos(lower(sku), lower($1)) > 0)
		  AND ($2 = '' OR category = $2)
		ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	createProductSQL = `INSERT INTO products (id, name, price, category, stock, sku, image)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, $6 FROM products
		RETURNING id`

	upsertProductSQL = `INSERT INTO products (id, name, price, category, stock, sku, image)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, $6 FROM products
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category,
		    stock = EXCLUDED.stock, image = EXCLUDED.image
		RETURNING id`

	updateProductSQL = `UPDATE products
		SET name = $2, price = $3, category = $4, stock = $5, sku = $6, image = $7
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	// lockProductIDsSQL is held by every ID-assigning insert until commit,
	// so MAX(id) is only read once the previous insert is visible.
	lockProductIDsSQL = `SELECT pg_advisory_xact_lock($1)`

	pingSQL = `SELECT 1`
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// productIDLockKey is the advisory lock key guarding product ID assignment.
const productIDLockKey int64 = 0x6b617274_69647300

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns the products matching f ordered by ID.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	category := string(f.Category)
	if f.Category == product.CategoryAll {
		category = ""
	}

	rows, err := r.db.Query(ctx, listProductsSQL, f.Term, category)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Create inserts p under the next sequential ID.
func (r *ProductRepository) Create(ctx context.Context, p product.Product) (*product.Product, error) {
	id, err := r.insertLocked(ctx, createProductSQL, p)
	if err != nil {
		if isUniqueViolation(err, "products_sku_key") {
			return nil, product.ErrDuplicateSKU
		}
		return nil, fmt.Errorf("creating product %q: %w", p.SKU, err)
	}
	p.ID = id
	return &p, nil
}

// Upsert inserts p, or overwrites the product that already carries p.SKU.
// The stored ID is returned.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) (int64, error) {
	id, err := r.insertLocked(ctx, upsertProductSQL, p)
	if err != nil {
		return 0, fmt.Errorf("upserting product %q: %w", p.SKU, err)
	}
	return id, nil
}

// insertLocked runs an ID-assigning insert of p in its own transaction under
// the product ID lock and returns the stored ID.
func (r *ProductRepository) insertLocked(ctx context.Context, sql string, p product.Product) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockProductIDsSQL, productIDLockKey); err != nil {
		return 0, fmt.Errorf("lock product ids: %w", err)
	}

	var id int64
	if err := tx.QueryRow(ctx, sql,
		p.Name, p.Price, string(p.Category), p.Stock, p.SKU, p.Image,
	).Scan(&id); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

// Update replaces every column of product p.ID.
func (r *ProductRepository) Update(ctx context.Context, p product.Product) error {
	tag, err := r.db.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Price, string(p.Category), p.Stock, p.SKU, p.Image,
	)
	if err != nil {
		if isUniqueViolation(err, "products_sku_key") {
			return product.ErrDuplicateSKU
		}
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes product id.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Ping checks that the database answers queries.
func (r *ProductRepository) Ping(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, pingSQL); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &category, &p.Stock, &p.SKU, &p.Image)
	p.Category = product.Category(category)
	return p, err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
