package quotations

import "github.com/go-chi/chi/v5"

// MountRoutes attaches quotation endpoints to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cost", h.RunCosting)
	r.Post("/{id}/price", h.RunPricing)
	r.Put("/{id}/cost-lines/{lineID}/vendor", h.SelectVendor)
	r.Put("/{id}/sale-lines/{lineID}/price", h.OverrideSalePrice)
	r.Post("/{id}/finalize", h.Finalize)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/won", h.MarkWon)
	r.Post("/{id}/lost", h.MarkLost)
	r.Post("/{id}/cancel", h.Cancel)
}
