package margins

import "github.com/go-chi/chi/v5"

// MountRoutes attaches margin endpoints to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sale-price", h.SalePrice)
	r.Post("/margin-rules", h.AddRule)
	r.Delete("/margin-rules/{id}", h.RemoveRule)
	r.Get("/margin-rules/validate", h.ValidateRules)
}
