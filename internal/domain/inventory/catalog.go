package inventory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/product"
)

type demoItem struct {
	name     string
	price    string
	category product.Category
	stock    int
	sku      string
}

var demoItems = []demoItem{
	{"Organic Cotton T-Shirt", "24.99", product.CategoryClothing, 45, "CLO-001"},
	{"Eco-Friendly Water Bottle", "15.99", product.CategoryAccessories, 78, "ACC-001"},
	{"Handmade Ceramic Mug", "12.99", product.CategoryHome, 12, "HOM-001"},
	{"Recycled Paper Notebook", "8.99", product.CategoryStationery, 34, "STA-001"},
	{"Bamboo Toothbrush", "4.99", product.CategoryHealth, 56, "HEA-001"},
	{"Reusable Produce Bags", "9.99", product.CategoryHome, 23, "HOM-002"},
	{"Natural Soy Candle", "18.99", product.CategoryHome, 18, "HOM-003"},
	{"Organic Lip Balm", "3.99", product.CategoryHealth, 67, "HEA-002"},
	{"Stainless Steel Straw Set", "11.99", product.CategoryAccessories, 42, "ACC-002"},
	{"Hemp Backpack", "49.99", product.CategoryAccessories, 15, "ACC-003"},
}

// DemoCatalog returns the starter catalog in ID order, without IDs assigned.
func DemoCatalog() []product.Product {
	out := make([]product.Product, 0, len(demoItems))
	for _, it := range demoItems {
		out = append(out, product.Product{
			Name:     it.name,
			Price:    decimal.RequireFromString(it.price),
			Category: it.category,
			Stock:    it.stock,
			SKU:      it.sku,
			Image:    product.DefaultImage,
		})
	}
	return out
}

// SeedDemoCatalog loads DemoCatalog into repo when repo is empty and reports
// how many products were created.
func SeedDemoCatalog(ctx context.Context, repo product.Repository) (int, error) {
	existing, err := repo.List(ctx, product.Filter{})
	if err != nil {
		return 0, errors.Wrap(err, "list products")
	}
	if len(existing) > 0 {
		return 0, nil
	}

	var n int
	for _, p := range DemoCatalog() {
		if _, err := repo.Create(ctx, p); err != nil {
			return n, errors.Wrapf(err, "create %s", p.SKU)
		}
		n++
	}
	return n, nil
}
