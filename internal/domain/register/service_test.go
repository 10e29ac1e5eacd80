package register

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/sale"
)

// --- Mocks ---

type mockProductRepo struct {
	products map[int64]product.Product
}

func (m *mockProductRepo) List(context.Context, product.Filter) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) Create(_ context.Context, p product.Product) (*product.Product, error) {
	return &p, nil
}

func (m *mockProductRepo) Update(context.Context, product.Product) error { return nil }
func (m *mockProductRepo) Delete(context.Context, int64) error          { return nil }
func (m *mockProductRepo) Ping(context.Context) error                   { return nil }

type mockSaleRepo struct {
	mu      sync.Mutex
	created []*sale.Sale
	err     error
}

func (m *mockSaleRepo) Create(_ context.Context, s *sale.Sale) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, s)
	return nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestProduct(id int64, name, price string) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    d(price),
		Category: product.CategoryHome,
		Stock:    10,
		SKU:      name,
		Image:    product.DefaultImage,
	}
}

func newTestService(t *testing.T) (*Service, *mockProductRepo, *mockSaleRepo) {
	t.Helper()
	products := &mockProductRepo{products: map[int64]product.Product{
		1: newTestProduct(1, "A", "10.00"),
		2: newTestProduct(2, "B", "5.00"),
	}}
	sales := &mockSaleRepo{}
	svc, err := NewService(products, sales, Config{TaxRate: cart.DefaultTaxRate})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, products, sales
}

// --- Tests ---

func TestService_AddItem(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)
	snap, err := svc.AddItem(ctx, "till-1", 2)
	require.NoError(t, err)

	require.Len(t, snap.Lines, 2)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, "25.00", snap.Subtotal.StringFixed(2))
	assert.Equal(t, "2.00", snap.Tax.StringFixed(2))
	assert.Equal(t, "27.00", snap.Total.StringFixed(2))
}

func TestService_AddItem_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.AddItem(context.Background(), "till-1", 99)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestService_AddItem_SnapshotIsNotResynced(t *testing.T) {
	svc, products, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)

	p := products.products[1]
	p.Price = d("99.00")
	products.products[1] = p

	snap, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "10.00", snap.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "20.00", snap.Subtotal.StringFixed(2))
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)

	snap, err := svc.Cart(ctx, "till-2")
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)

	_, err = svc.Cart(ctx, "")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestService_SetQuantity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)

	snap, err := svc.SetQuantity(ctx, "till-1", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Lines[0].Quantity)

	snap, err = svc.SetQuantity(ctx, "till-1", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)

	_, err = svc.SetQuantity(ctx, "till-1", 1, 3)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestService_RemoveItem(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 2)
	require.NoError(t, err)

	snap, err := svc.RemoveItem(ctx, "till-1", 2)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)

	_, err = svc.RemoveItem(ctx, "till-1", 2)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestService_Clear(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)

	snap, err := svc.Clear(ctx, "till-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
	assert.True(t, snap.Total.IsZero())
}

func TestService_QuoteChange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)

	q, err := svc.QuoteChange(ctx, "till-1", d("20"))
	require.NoError(t, err)
	assert.Equal(t, "10.80", q.Total.StringFixed(2))
	assert.Equal(t, "9.20", q.ChangeDue.StringFixed(2))

	q, err = svc.QuoteChange(ctx, "till-1", d("5"))
	require.NoError(t, err)
	assert.True(t, q.ChangeDue.IsZero())

	_, err = svc.QuoteChange(ctx, "till-1", d("-1"))
	require.ErrorIs(t, err, cart.ErrInvalidAmount)
}

func TestService_Checkout(t *testing.T) {
	svc, _, sales := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "till-1", 2)
	require.NoError(t, err)

	sl, err := svc.Checkout(ctx, "till-1", d("30.00"))
	require.NoError(t, err)
	assert.NotEmpty(t, sl.ID)
	assert.Equal(t, "till-1", sl.SessionID)
	assert.Equal(t, "27.00", sl.Total.StringFixed(2))
	assert.Equal(t, "3.00", sl.ChangeDue.StringFixed(2))
	assert.Equal(t, 3, sl.ItemCount())
	assert.Equal(t, svc.now(), sl.CompletedAt)

	require.Len(t, sales.created, 1)
	assert.Equal(t, sl.ID, sales.created[0].ID)

	snap, err := svc.Cart(ctx, "till-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
}

func TestService_Checkout_InsufficientPayment(t *testing.T) {
	svc, _, sales := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, "till-1", d("10.00"))
	require.ErrorIs(t, err, cart.ErrInsufficientPayment)

	var payErr *cart.InsufficientPaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, "10.80", payErr.Total.StringFixed(2))

	snap, err := svc.Cart(ctx, "till-1")
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 1)
	assert.Empty(t, sales.created)
}

func TestService_Checkout_EmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Checkout(context.Background(), "till-1", d("10.00"))
	require.ErrorIs(t, err, cart.ErrEmptyCart)
}

func TestService_Checkout_JournalFailureKeepsCart(t *testing.T) {
	svc, _, sales := newTestService(t)
	ctx := context.Background()
	sales.err = errors.New("db down")

	_, err := svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, "till-1", d("20.00"))
	require.Error(t, err)

	snap, err := svc.Cart(ctx, "till-1")
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 1)
}

func TestService_ConcurrentAdds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			_, err := svc.AddItem(ctx, "till-1", 1)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	snap, err := svc.Cart(ctx, "till-1")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, n, snap.Lines[0].Quantity)
}

func sessionCount(s *Service) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func TestService_EmptySessionsAreDropped(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Cart(ctx, "till-1")
	require.NoError(t, err)
	assert.Zero(t, sessionCount(svc), "reading an empty cart keeps no session")

	_, err = svc.AddItem(ctx, "till-1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "till-2", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, sessionCount(svc))

	_, err = svc.Clear(ctx, "till-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sessionCount(svc))

	_, err = svc.Checkout(ctx, "till-2", d("20.00"))
	require.NoError(t, err)
	assert.Zero(t, sessionCount(svc))

	_, err = svc.AddItem(ctx, "till-3", 2)
	require.NoError(t, err)
	_, err = svc.RemoveItem(ctx, "till-3", 2)
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, "till-3", 2, 1)
	require.ErrorIs(t, err, ErrLineNotFound)
	assert.Zero(t, sessionCount(svc))
}

func TestService_ConcurrentAddAndCheckoutLosesNoItems(t *testing.T) {
	svc, _, sales := newTestService(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			_, err := svc.AddItem(ctx, "till-1", 1)
			assert.NoError(t, err)
			if _, err := svc.Checkout(ctx, "till-1", d("1000")); err != nil {
				assert.ErrorIs(t, err, cart.ErrEmptyCart)
			}
		})
	}
	wg.Wait()

	if _, err := svc.Checkout(ctx, "till-1", d("1000")); err != nil {
		require.ErrorIs(t, err, cart.ErrEmptyCart)
	}

	var sold int
	for _, sl := range sales.created {
		sold += sl.ItemCount()
	}
	assert.Equal(t, n, sold)
	assert.Zero(t, sessionCount(svc))
}

func TestNewService_RejectsNegativeTaxRate(t *testing.T) {
	_, err := NewService(&mockProductRepo{}, &mockSaleRepo{}, Config{TaxRate: d("-0.01")})
	require.Error(t, err)
}
