package sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/cart"
)

// Sale is the journal record of a completed sale.
type Sale struct {
	ID          string
	SessionID   string
	Lines       []cart.Line
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	Tendered    decimal.Decimal
	ChangeDue   decimal.Decimal
	CompletedAt time.Time
}

// ItemCount returns the number of units sold.
func (s *Sale) ItemCount() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

// Repository is the append-only sale journal.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
}
