package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/register"
)

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, snap register.Snapshot, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, snap) })
}

// GetCart returns the caller's cart with totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.register.Cart(r.Context(), p.Subject)
	h.respondCart(w, r, snap, err)
}

// AddCartItem adds one unit of the product in the body.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := decodeProductID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.register.AddItem(r.Context(), p.Subject, id)
	h.respondCart(w, r, snap, err)
}

// UpdateCartItem sets a line's quantity; zero or less removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	qty, err := decodeQuantity(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.register.SetQuantity(r.Context(), p.Subject, id, qty)
	h.respondCart(w, r, snap, err)
}

// RemoveCartItem deletes a line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.register.RemoveItem(r.Context(), p.Subject, id)
	h.respondCart(w, r, snap, err)
}

// ClearCart cancels the sale in progress.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.register.Clear(r.Context(), p.Subject)
	h.respondCart(w, r, snap, err)
}

// QuoteChange reports the change due for a tendered amount.
func (h *Handler) QuoteChange(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := decodeTendered(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tendered, err := cart.ParseTender(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.register.QuoteChange(r.Context(), p.Subject, tendered)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuote(e, q) })
}

// Checkout completes the sale and returns the receipt.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := decodeTendered(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tendered, err := cart.ParseTender(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.register.Checkout(r.Context(), p.Subject, tendered)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSale(e, s) })
}
