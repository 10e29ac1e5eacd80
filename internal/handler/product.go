package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-pos/internal/domain/product"
)

// SearchProducts filters the catalog by ?search= and ?category=.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.store.Search(r.Context(), q.Get("search"), q.Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range items {
			encodeProduct(e, p, h.store.StockLevel(p))
		}
		e.ArrEnd()
	})
}

// GetProduct returns one product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondProduct(w, http.StatusOK, p)
}

// AddProduct creates a product.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProductInput(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.store.AddProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(p.ID, 10))
	h.respondProduct(w, http.StatusCreated, p)
}

// UpdateProduct replaces a product's fields.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeProductInput(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.store.UpdateProduct(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondProduct(w, http.StatusOK, p)
}

// DeleteProduct removes a product. Requires admin and ?confirm=true.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.store.DeleteProduct(r.Context(), caller, id, confirmed); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InventorySummary returns the aggregate tiles.
func (h *Handler) InventorySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSummary(e, sum) })
}

// ListCategories returns the assignable categories in display order.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range h.store.Categories() {
			e.Str(string(c))
		}
		e.ArrEnd()
	})
}

func (h *Handler) respondProduct(w http.ResponseWriter, status int, p *product.Product) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeProduct(e, *p, h.store.StockLevel(*p)) })
}
