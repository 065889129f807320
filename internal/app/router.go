package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/waypoint-tms/waypoint-tms/internal/fx"
	"github.com/waypoint-tms/waypoint-tms/internal/observability"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/margins"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/taxes"
	"github.com/waypoint-tms/waypoint-tms/internal/quotations"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/chargerules"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/vendorrates"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	ChargeRulesHandler *chargerules.Handler
	VendorRatesHandler *vendorrates.Handler
	FXHandler          *fx.Handler
	MarginsHandler     *margins.Handler
	TaxesHandler       *taxes.Handler
	QuotationsHandler  *quotations.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Waypoint defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/rating", func(r chi.Router) {
		if params.ChargeRulesHandler != nil {
			params.ChargeRulesHandler.MountRoutes(r)
		}
		if params.VendorRatesHandler != nil {
			params.VendorRatesHandler.MountRoutes(r)
		}
	})

	if params.FXHandler != nil {
		r.Route("/fx", func(r chi.Router) {
			params.FXHandler.MountRoutes(r)
		})
	}

	if params.MarginsHandler != nil || params.TaxesHandler != nil {
		r.Route("/pricing", func(r chi.Router) {
			if params.MarginsHandler != nil {
				params.MarginsHandler.MountRoutes(r)
			}
			if params.TaxesHandler != nil {
				params.TaxesHandler.MountRoutes(r)
			}
		})
	}

	if params.QuotationsHandler != nil {
		r.Route("/quotations", func(r chi.Router) {
			params.QuotationsHandler.MountRoutes(r)
		})
	}

	return r
}
