package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/sale"
)

const createSaleSQL = `INSERT INTO sales
	(id, session_id, lines, tax_rate, subtotal, tax, total, tendered, change_due, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

var _ sale.Repository = (*SaleRepository)(nil)

type saleLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// SaleRepository implements sale.Repository backed by PostgreSQL.
type SaleRepository struct {
	db DBTX
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(db DBTX) *SaleRepository {
	return &SaleRepository{db: db}
}

// Create appends s to the journal. Lines are stored as JSONB.
func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	lines := make([]saleLine, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = saleLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshaling sale lines: %w", err)
	}

	_, err = r.db.Exec(ctx, createSaleSQL,
		s.ID, s.SessionID, linesJSON, s.TaxRate,
		s.Subtotal, s.Tax, s.Total, s.Tendered, s.ChangeDue, s.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("creating sale %q: %w", s.ID, err)
	}
	return nil
}
