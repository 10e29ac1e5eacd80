package cart

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/product"
)

// Sentinel errors for checkout.
var (
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyCart           = errors.New("cart is empty")
)

// InsufficientPaymentError indicates the tendered amount does not cover the
// total due. It matches ErrInsufficientPayment with errors.Is.
type InsufficientPaymentError struct {
	Total    decimal.Decimal
	Tendered decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: tendered %s, total due %s",
		e.Tendered.StringFixed(2), e.Total.StringFixed(2))
}

// Is reports whether target is ErrInsufficientPayment.
func (e *InsufficientPaymentError) Is(target error) bool {
	return target == ErrInsufficientPayment
}

// Receipt is the outcome of a completed sale.
type Receipt struct {
	Lines     []Line
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Tendered  decimal.Decimal
	ChangeDue decimal.Decimal
}

// CompleteSale settles the cart. It requires tendered >= total; on success
// the cart is cleared and the receipt returned. On failure the cart is left
// untouched.
func (c *Cart) CompleteSale(tendered, rate decimal.Decimal) (*Receipt, error) {
	if len(c.lines) == 0 {
		return nil, ErrEmptyCart
	}
	if tendered.IsNegative() {
		return nil, errors.Wrapf(ErrInvalidAmount, "tendered %s", tendered)
	}

	t := c.Totals(rate)
	if tendered.LessThan(t.Total) {
		return nil, &InsufficientPaymentError{Total: t.Total, Tendered: tendered}
	}

	r := &Receipt{
		Lines:     c.Lines(),
		TaxRate:   rate,
		Subtotal:  t.Subtotal,
		Tax:       t.Tax,
		Total:     t.Total,
		Tendered:  tendered,
		ChangeDue: tendered.Sub(t.Total),
	}
	c.Clear()
	return r, nil
}

// ParseTender parses a tendered cash amount. Non-numeric, empty, negative and
// out of range input fail with ErrInvalidAmount.
func ParseTender(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "empty tender")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "parse %q", s)
	}
	if err := product.CheckAmount(v); err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "tender %q: %s", s, err)
	}
	if v.IsNegative() {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "negative tender %s", s)
	}
	return v, nil
}
