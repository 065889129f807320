package fx

import "github.com/go-chi/chi/v5"

// MountRoutes attaches fx endpoints to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rate", h.GetRate)
	r.Get("/currencies", h.ListCurrencies)
	r.Post("/bulk-update", h.BulkUpdate)
}
