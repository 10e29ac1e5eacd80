package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/inventory"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/register"
	"github.com/xenking/kart-pos/internal/domain/sale"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// money writes d as a JSON number with exactly two decimals.
func money(e *jx.Encoder, field string, d decimal.Decimal) {
	e.FieldStart(field)
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeProduct(e *jx.Encoder, p product.Product, level inventory.StockLevel) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	money(e, "price", p.Price)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("sku")
	e.Str(p.SKU)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("stockLevel")
	e.Str(string(level))
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Int64(l.ProductID)
	e.FieldStart("name")
	e.Str(l.Name)
	money(e, "price", l.UnitPrice)
	e.FieldStart("image")
	e.Str(l.Image)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	money(e, "amount", l.Amount())
	e.ObjEnd()
}

func encodeTotals(e *jx.Encoder, t cart.Totals) {
	money(e, "subtotal", t.Subtotal)
	money(e, "tax", t.Tax)
	money(e, "total", t.Total)
}

func encodeCart(e *jx.Encoder, s register.Snapshot) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range s.Lines {
		encodeLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("itemCount")
	e.Int(s.ItemCount)
	e.FieldStart("taxRate")
	e.Raw([]byte(s.TaxRate.String()))
	encodeTotals(e, s.Totals)
	e.ObjEnd()
}

func encodeQuote(e *jx.Encoder, q register.Quote) {
	e.ObjStart()
	encodeTotals(e, q.Totals)
	money(e, "tendered", q.Tendered)
	money(e, "changeDue", q.ChangeDue)
	e.ObjEnd()
}

func encodeSale(e *jx.Encoder, s *sale.Sale) {
	e.ObjStart()
	e.FieldStart("saleId")
	e.Str(s.ID)
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range s.Lines {
		encodeLine(e, l)
	}
	e.ArrEnd()
	money(e, "subtotal", s.Subtotal)
	money(e, "tax", s.Tax)
	money(e, "total", s.Total)
	money(e, "tendered", s.Tendered)
	money(e, "changeDue", s.ChangeDue)
	e.FieldStart("completedAt")
	e.Str(s.CompletedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s inventory.Summary) {
	e.ObjStart()
	e.FieldStart("productCount")
	e.Int(s.ProductCount)
	e.FieldStart("categoryCount")
	e.Int(s.CategoryCount)
	e.FieldStart("lowStockCount")
	e.Int(s.LowStockCount)
	money(e, "totalValue", s.TotalValue)
	money(e, "averagePrice", s.AveragePrice)
	e.ObjEnd()
}
