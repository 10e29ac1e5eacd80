// Package register runs the cart of each register session against the
// product catalog and records completed sales.
package register

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/sale"
)

const instrumentationName = "github.com/xenking/kart-pos/internal/domain/register"

// Sentinel errors for register operations.
var (
	ErrLineNotFound = errors.New("product is not in the cart")
	ErrNoSession    = errors.New("session id required")
)

// Snapshot is a read-only view of a session's cart with its totals.
type Snapshot struct {
	SessionID string
	Lines     []cart.Line
	ItemCount int
	TaxRate   decimal.Decimal
	cart.Totals
}

// Quote is the change owed for a tendered amount against the current cart.
type Quote struct {
	cart.Totals
	Tendered  decimal.Decimal
	ChangeDue decimal.Decimal
}

// Config configures a Service. Nil providers fall back to no-op ones.
type Config struct {
	TaxRate        decimal.Decimal
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

type session struct {
	mu   sync.Mutex
	cart *cart.Cart
	// evicted is set, under mu, once the session has left Service.sessions.
	evicted bool
}

// Service owns one cart per register session. A session lives only while its
// cart holds items.
type Service struct {
	products product.Repository
	sales    sale.Repository
	taxRate  decimal.Decimal
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	tracer      trace.Tracer
	salesTotal  metric.Int64Counter
	revenue     metric.Float64Counter
	itemsAdded  metric.Int64Counter
	rejectedPay metric.Int64Counter
}

// NewService creates a register Service.
func NewService(products product.Repository, sales sale.Repository, cfg Config) (*Service, error) {
	if cfg.TaxRate.IsNegative() {
		return nil, errors.Errorf("tax rate %s is negative", cfg.TaxRate)
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	s := &Service{
		products: products,
		sales:    sales,
		taxRate:  cfg.TaxRate,
		now:      time.Now,
		sessions: make(map[string]*session),
		tracer:   cfg.TracerProvider.Tracer(instrumentationName),
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	var err error
	if s.salesTotal, err = meter.Int64Counter("pos.sales.completed",
		metric.WithDescription("Completed sales"),
	); err != nil {
		return nil, errors.Wrap(err, "sales counter")
	}
	if s.revenue, err = meter.Float64Counter("pos.sales.revenue",
		metric.WithDescription("Sale totals including tax"),
	); err != nil {
		return nil, errors.Wrap(err, "revenue counter")
	}
	if s.itemsAdded, err = meter.Int64Counter("pos.cart.items_added",
		metric.WithDescription("Units added to carts"),
	); err != nil {
		return nil, errors.Wrap(err, "items counter")
	}
	if s.rejectedPay, err = meter.Int64Counter("pos.sales.rejected",
		metric.WithDescription("Checkouts rejected for insufficient payment"),
	); err != nil {
		return nil, errors.Wrap(err, "rejected counter")
	}
	return s, nil
}

// TaxRate returns the rate applied to every cart.
func (s *Service) TaxRate() decimal.Decimal {
	return s.taxRate
}

// acquire returns the locked session for id, creating it if needed. Callers
// must hand it back through release.
func (s *Service) acquire(id string) (*session, error) {
	if id == "" {
		return nil, ErrNoSession
	}
	for {
		s.mu.Lock()
		sess, ok := s.sessions[id]
		if !ok {
			sess = &session{cart: cart.New()}
			s.sessions[id] = sess
		}
		s.mu.Unlock()

		sess.mu.Lock()
		if !sess.evicted {
			return sess, nil
		}
		// Emptied and dropped between lookup and lock; take the new one.
		sess.mu.Unlock()
	}
}

// release unlocks sess, dropping it from the session map when its cart is
// empty. Lock order is session then service.
func (s *Service) release(id string, sess *session) {
	if sess.cart.ItemCount() == 0 {
		s.mu.Lock()
		if s.sessions[id] == sess {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		sess.evicted = true
	}
	sess.mu.Unlock()
}


func (s *Service) snapshot(id string, c *cart.Cart) Snapshot {
	return Snapshot{
		SessionID: id,
		Lines:     c.Lines(),
		ItemCount: c.ItemCount(),
		TaxRate:   s.taxRate,
		Totals:    c.Totals(s.taxRate),
	}
}

// Cart returns the current cart of sessionID.
func (s *Service) Cart(_ context.Context, sessionID string) (Snapshot, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.release(sessionID, sess)

	return s.snapshot(sessionID, sess.cart), nil
}

// AddItem adds one unit of productID, snapshotting the product as it is now.
func (s *Service) AddItem(ctx context.Context, sessionID string, productID int64) (Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "register.AddItem", trace.WithAttributes(
		attribute.Int64("pos.product_id", productID),
	))
	defer span.End()

	if sessionID == "" {
		return Snapshot{}, ErrNoSession
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return Snapshot{}, errors.Wrapf(err, "get product %d", productID)
	}

	sess, err := s.acquire(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.release(sessionID, sess)

	sess.cart.AddToCart(*p)
	s.itemsAdded.Add(ctx, 1)
	return s.snapshot(sessionID, sess.cart), nil
}

// SetQuantity sets the quantity of productID. Zero or less removes the line.
func (s *Service) SetQuantity(_ context.Context, sessionID string, productID int64, qty int) (Snapshot, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.release(sessionID, sess)

	if !sess.cart.UpdateQuantity(productID, qty) {
		return Snapshot{}, errors.Wrapf(ErrLineNotFound, "product %d", productID)
	}
	return s.snapshot(sessionID, sess.cart), nil
}

// RemoveItem deletes the line for productID.
func (s *Service) RemoveItem(_ context.Context, sessionID string, productID int64) (Snapshot, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.release(sessionID, sess)

	if !sess.cart.RemoveFromCart(productID) {
		return Snapshot{}, errors.Wrapf(ErrLineNotFound, "product %d", productID)
	}
	return s.snapshot(sessionID, sess.cart), nil
}

// Clear cancels the sale in progress.
func (s *Service) Clear(_ context.Context, sessionID string) (Snapshot, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	defer s.release(sessionID, sess)

	sess.cart.Clear()
	return s.snapshot(sessionID, sess.cart), nil
}

// QuoteChange reports the change owed for tendered without completing the sale.
func (s *Service) QuoteChange(_ context.Context, sessionID string, tendered decimal.Decimal) (Quote, error) {
	if tendered.IsNegative() {
		return Quote{}, errors.Wrapf(cart.ErrInvalidAmount, "tendered %s", tendered)
	}
	sess, err := s.acquire(sessionID)
	if err != nil {
		return Quote{}, err
	}
	defer s.release(sessionID, sess)

	return Quote{
		Totals:    sess.cart.Totals(s.taxRate),
		Tendered:  tendered,
		ChangeDue: sess.cart.ChangeDue(tendered, s.taxRate),
	}, nil
}

// Checkout completes the sale of sessionID. The sale is journaled before the
// cart is cleared; if either payment or the journal fails the cart is kept.
func (s *Service) Checkout(ctx context.Context, sessionID string, tendered decimal.Decimal) (*sale.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "register.Checkout")
	defer span.End()

	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer s.release(sessionID, sess)

	trial := sess.cart.Clone()
	receipt, err := trial.CompleteSale(tendered, s.taxRate)
	if err != nil {
		if errors.Is(err, cart.ErrInsufficientPayment) {
			s.rejectedPay.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sl := &sale.Sale{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Lines:       receipt.Lines,
		TaxRate:     receipt.TaxRate,
		Subtotal:    receipt.Subtotal,
		Tax:         receipt.Tax,
		Total:       receipt.Total,
		Tendered:    receipt.Tendered,
		ChangeDue:   receipt.ChangeDue,
		CompletedAt: s.now().UTC(),
	}
	if err := s.sales.Create(ctx, sl); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal sale")
		return nil, errors.Wrap(err, "create sale")
	}
	sess.cart.Clear()

	span.SetAttributes(
		attribute.String("pos.sale_id", sl.ID),
		attribute.Int("pos.items", sl.ItemCount()),
	)
	s.salesTotal.Add(ctx, 1)
	s.revenue.Add(ctx, sl.Total.InexactFloat64())

	zctx.From(ctx).Info("Sale completed",
		zap.String("sale_id", sl.ID),
		zap.String("session", sessionID),
		zap.Int("items", sl.ItemCount()),
		zap.String("total", sl.Total.StringFixed(2)),
	)
	return sl, nil
}
