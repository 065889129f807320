package chargerules

import "github.com/go-chi/chi/v5"

// MountRoutes attaches charge rule endpoints to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/applicable-charges", h.ApplicableCharges)
	r.Post("/charge-rules", h.AddRule)
	r.Delete("/charge-rules", h.RemoveRule)
}
