package vendorrates

import "github.com/go-chi/chi/v5"

// MountRoutes attaches vendor rate endpoints to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vendor-costs", h.MatchingCosts)
	r.Post("/vendor-rates", h.CreateHeader)
	r.Get("/vendor-rates/{id}", h.GetHeader)
	r.Get("/vendor-rates/{id}/validate", h.ValidateHeader)
}
