package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/product"
)

// DefaultTaxRate is the sales tax applied at the register (8%).
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Line is a single product entry in a cart. Name, UnitPrice and Image are
// copied from the product when the line is created and are not refreshed
// when the product is edited later.
type Line struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Image     string
	Quantity  int
}

// Amount returns UnitPrice * Quantity.
func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds the monetary summary of a cart at a given tax rate.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Cart is the ordered set of lines for one in-progress sale. It is not safe
// for concurrent use; callers serialize access.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddToCart increments the line for p by one, or appends a new line with
// quantity 1 when p is not yet in the cart. It returns the resulting line.
func (c *Cart) AddToCart(p product.Product) Line {
	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity++
		return c.lines[i]
	}
	l := Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Image:     p.Image,
		Quantity:  1,
	}
	c.lines = append(c.lines, l)
	return l
}

// UpdateQuantity sets the quantity of the line for id to exactly qty.
// A qty of zero or less removes the line. It reports whether a line for id
// was present.
func (c *Cart) UpdateQuantity(id int64, qty int) bool {
	if qty <= 0 {
		return c.RemoveFromCart(id)
	}
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity = qty
	return true
}

// RemoveFromCart deletes the line for id and reports whether it existed.
func (c *Cart) RemoveFromCart(id int64) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.lines = slices.Delete(c.lines, i, i+1)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

// Clone returns an independent copy of c.
func (c *Cart) Clone() *Cart {
	return &Cart{lines: slices.Clone(c.lines)}
}

// Line returns the line for id.
func (c *Cart) Line(id int64) (Line, bool) {
	if i := c.index(id); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// ItemCount returns the sum of quantities across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the sum of line amounts before tax.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Amount())
	}
	return sum
}

// Tax returns the rounded subtotal multiplied by rate, rounded to cents. It
// always equals Totals(rate).Tax.
func (c *Cart) Tax(rate decimal.Decimal) decimal.Decimal {
	return c.Totals(rate).Tax
}

// Total returns the subtotal plus tax at rate.
func (c *Cart) Total(rate decimal.Decimal) decimal.Decimal {
	return c.Totals(rate).Total
}

// Totals computes subtotal, tax and total in one pass. Total is the sum of
// the rounded subtotal and rounded tax so the printed figures always add up.
func (c *Cart) Totals(rate decimal.Decimal) Totals {
	subtotal := c.Subtotal().Round(2)
	tax := subtotal.Mul(rate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// ChangeDue returns max(0, tendered - total). A negative tender yields zero.
func (c *Cart) ChangeDue(tendered, rate decimal.Decimal) decimal.Decimal {
	change := tendered.Sub(c.Total(rate))
	if change.IsNegative() {
		return decimal.Zero
	}
	return change.Round(2)
}

func (c *Cart) index(id int64) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.ProductID == id })
}
