package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/kart-pos/internal/domain/inventory"
	"github.com/xenking/kart-pos/internal/domain/register"
)

// Handler serves the register and inventory API.
type Handler struct {
	store    *inventory.Store
	register *register.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(store *inventory.Store, reg *register.Service) *Handler {
	return &Handler{store: store, register: reg}
}

// Routes returns the authenticated API router, to be mounted under /api.
func (h *Handler) Routes(v Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(Authenticate(v))

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Patch("/items/{id}", h.UpdateCartItem)
		r.Delete("/items/{id}", h.RemoveCartItem)
		r.Post("/change", h.QuoteChange)
		r.Post("/checkout", h.Checkout)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.SearchProducts)
		r.Post("/", h.AddProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})

	r.Get("/inventory/summary", h.InventorySummary)
	r.Get("/categories", h.ListCategories)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNoRoute)
	})
	return r
}
