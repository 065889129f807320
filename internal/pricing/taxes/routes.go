package taxes

import "github.com/go-chi/chi/v5"

// MountRoutes attaches tax endpoints to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/tax", h.Tax)
	r.Post("/tax-batch", h.TaxBatch)
	r.Get("/tax-codes", h.ListTaxCodes)
	r.Post("/tax-codes", h.AddTaxCode)
	r.Delete("/tax-codes/{id}", h.DeactivateTaxCode)
	r.Post("/tax-cache/flush", h.FlushCache)
}
