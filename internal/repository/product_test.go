package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/sale"
)

var productCols = []string{"id", "name", "price", "category", "stock", "sku", "image"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func mugRow(rows *pgxmock.Rows) *pgxmock.Rows {
	return rows.AddRow(int64(3), "Handmade Ceramic Mug", decimal.RequireFromString("12.99"),
		"home", 12, "HOM-001", product.DefaultImage)
}

func testProduct() product.Product {
	return product.Product{
		Name:     "Beeswax Wrap",
		Price:    decimal.RequireFromString("7.50"),
		Category: product.CategoryHome,
		Stock:    5,
		SKU:      "HOM-004",
		Image:    product.DefaultImage,
	}
}

func TestProductRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`strpos\(lower\(name\), lower\(\$1\)\)`).
		WithArgs("mug", "").
		WillReturnRows(mugRow(pgxmock.NewRows(productCols)))

	got, err := repo.List(context.Background(), product.Filter{Term: "mug", Category: product.CategoryAll})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, product.CategoryHome, got[0].Category)
	assert.Equal(t, "12.99", got[0].Price.StringFixed(2))
}

func TestProductRepository_List_Category(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`FROM products`).
		WithArgs("", "home").
		WillReturnRows(pgxmock.NewRows(productCols))

	got, err := repo.List(context.Background(), product.Filter{Category: product.CategoryHome})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProductRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(mugRow(pgxmock.NewRows(productCols)))
	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(productCols))

	p, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "HOM-001", p.SKU)

	_, err = repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func expectIDLock(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(productIDLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func TestProductRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	in := testProduct()

	mock.ExpectBegin()
	expectIDLock(mock)
	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs(in.Name, pgxmock.AnyArg(), "home", 5, "HOM-004", product.DefaultImage).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	p, err := repo.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)
	assert.Equal(t, "Beeswax Wrap", p.Name)
}

func TestProductRepository_Create_DuplicateSKU(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectBegin()
	expectIDLock(mock)
	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), testProduct())
	require.ErrorIs(t, err, product.ErrDuplicateSKU)
}

func TestProductRepository_Create_TransactionErrors(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		_, err := NewProductRepository(mock).Create(context.Background(), testProduct())
		require.ErrorContains(t, err, "begin transaction")
	})

	t.Run("lock", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).
			WithArgs(productIDLockKey).
			WillReturnError(errors.New("canceling statement due to lock timeout"))
		mock.ExpectRollback()

		_, err := NewProductRepository(mock).Create(context.Background(), testProduct())
		require.ErrorContains(t, err, "lock product ids")
	})

	t.Run("commit", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectIDLock(mock)
		mock.ExpectQuery(`INSERT INTO products`).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		_, err := NewProductRepository(mock).Create(context.Background(), testProduct())
		require.ErrorContains(t, err, "commit transaction")
	})
}

func TestProductRepository_Upsert(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectBegin()
	expectIDLock(mock)
	mock.ExpectQuery(`ON CONFLICT \(sku\) DO UPDATE`).
		WithArgs("Beeswax Wrap", pgxmock.AnyArg(), "home", 5, "HOM-004", product.DefaultImage).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectCommit()

	id, err := repo.Upsert(context.Background(), testProduct())
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestProductRepository_Update(t *testing.T) {
	tests := []struct {
		name    string
		result  pgconn.CommandTag
		err     error
		wantErr error
	}{
		{name: "updated", result: pgxmock.NewResult("UPDATE", 1)},
		{name: "missing", result: pgxmock.NewResult("UPDATE", 0), wantErr: product.ErrNotFound},
		{
			name:    "duplicate sku",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"},
			wantErr: product.ErrDuplicateSKU,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewProductRepository(mock)
			p := testProduct()
			p.ID = 3

			exp := mock.ExpectExec(`UPDATE products`).
				WithArgs(int64(3), p.Name, pgxmock.AnyArg(), "home", 5, "HOM-004", product.DefaultImage)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.Update(context.Background(), p)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProductRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec(`DELETE FROM products`).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM products`).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), 3))
	require.ErrorIs(t, repo.Delete(context.Background(), 3), product.ErrNotFound)
}

func TestProductRepository_Ping(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`SELECT 1`).WillReturnError(errors.New("connection refused"))

	require.NoError(t, repo.Ping(context.Background()))
	require.Error(t, repo.Ping(context.Background()))
}

func TestRunMigrations(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS products`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, RunMigrations(context.Background(), mock))
}

func TestSaleRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewSaleRepository(mock)

	s := &sale.Sale{
		ID:        "5f0c7a3e-7a1b-4c4e-9d1e-0b6f2a9d8c11",
		SessionID: "till-1",
		Lines: []cart.Line{{
			ProductID: 3,
			Name:      "Handmade Ceramic Mug",
			UnitPrice: decimal.RequireFromString("12.99"),
			Quantity:  2,
		}},
		TaxRate:     cart.DefaultTaxRate,
		Subtotal:    decimal.RequireFromString("25.98"),
		Tax:         decimal.RequireFromString("2.08"),
		Total:       decimal.RequireFromString("28.06"),
		Tendered:    decimal.RequireFromString("30.00"),
		ChangeDue:   decimal.RequireFromString("1.94"),
		CompletedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO sales`).
		WithArgs(s.ID, "till-1",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), s.CompletedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), s))
}
