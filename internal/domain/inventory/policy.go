package inventory

// StockLevel classifies a product's quantity on hand for the inventory table.
type StockLevel string

const (
	StockOK       StockLevel = "ok"
	StockWarning  StockLevel = "warning"
	StockCritical StockLevel = "critical"
)

// Policy holds the stock thresholds. The table thresholds (CriticalStock,
// WarningStock) and the summary tile threshold (SummaryLowStock) are
// separate business rules and are configured independently.
type Policy struct {
	// CriticalStock marks a product red in the table when stock <= value.
	CriticalStock int
	// WarningStock marks a product amber in the table when stock <= value.
	WarningStock int
	// SummaryLowStock counts a product as low stock in the summary when stock <= value.
	SummaryLowStock int
}

// DefaultPolicy returns the thresholds used by the shop today.
func DefaultPolicy() Policy {
	return Policy{
		CriticalStock:   10,
		WarningStock:    20,
		SummaryLowStock: 15,
	}
}

// Level classifies stock against the table thresholds.
func (p Policy) Level(stock int) StockLevel {
	switch {
	case stock <= p.CriticalStock:
		return StockCritical
	case stock <= p.WarningStock:
		return StockWarning
	default:
		return StockOK
	}
}

// LowStock reports whether stock counts toward the summary low-stock tile.
func (p Policy) LowStock(stock int) bool {
	return stock <= p.SummaryLowStock
}
