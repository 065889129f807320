package fx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/waypoint-tms/waypoint-tms/internal/platform/httpx"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// GetRate handles GET /fx/rate?from=USD&to=INR&date=2025-11-01.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	asOf := time.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	rate, err := h.service.Rate(r.Context(), from, to, asOf)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("resolve rate failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"from": from,
		"to":   to,
		"date": asOf.Format("2006-01-02"),
		"rate": rate,
	})
}

type bulkUpdateRequest struct {
	BaseCurrency  string             `json:"base_currency" validate:"required,len=3"`
	EffectiveDate string             `json:"effective_date" validate:"required"`
	Source        string             `json:"source"`
	Rates         map[string]float64 `json:"rates" validate:"required,min=1"`
}

// BulkUpdate handles POST /fx/bulk-update.
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	effective, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "effective_date must be YYYY-MM-DD")
		return
	}

	created, err := h.service.BulkUpdate(r.Context(), BulkUpdateRequest{
		BaseCurrency:  req.BaseCurrency,
		EffectiveDate: effective,
		Source:        req.Source,
		Rates:         req.Rates,
	})
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrBusinessRule) {
			h.logger.Error("bulk rate update failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{"created": created})
}

// ListCurrencies handles GET /fx/currencies.
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Currencies(r.Context())
	if err != nil {
		h.logger.Error("list currencies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"currencies": out})
}
