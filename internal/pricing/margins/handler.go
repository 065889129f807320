package margins

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
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

type salePriceRequest struct {
	Cost       float64 `json:"cost" validate:"gte=0"`
	ChargeID   *int64  `json:"charge_id,omitempty" validate:"omitempty,gt=0"`
	CustomerID *int64  `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
}

// SalePrice handles POST /pricing/sale-price.
func (h *Handler) SalePrice(w http.ResponseWriter, r *http.Request) {
	var req salePriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	resolution, err := h.service.SalePrice(r.Context(), req.Cost, req.ChargeID, req.CustomerID)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("sale price resolution failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resolution)
}

type marginRuleRequest struct {
	Precedence int     `json:"precedence"`
	ChargeID   *int64  `json:"charge_id,omitempty" validate:"omitempty,gt=0"`
	CustomerID *int64  `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	MarginPct  float64 `json:"margin_pct"`
	MarginFlat float64 `json:"margin_flat"`
}

// AddRule handles POST /pricing/margin-rules.
func (h *Handler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req marginRuleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	rule, err := h.service.AddRule(r.Context(), MarginRule{
		Precedence: req.Precedence,
		ChargeID:   req.ChargeID,
		CustomerID: req.CustomerID,
		MarginPct:  req.MarginPct,
		MarginFlat: req.MarginFlat,
	})
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("add margin rule failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rule)
}

// RemoveRule handles DELETE /pricing/margin-rules/{id}.
func (h *Handler) RemoveRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	removed, err := h.service.RemoveRule(r.Context(), id)
	if err != nil {
		h.logger.Error("remove margin rule failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// ValidateRules handles GET /pricing/margin-rules/validate.
func (h *Handler) ValidateRules(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.ValidateRules(r.Context())
	if err != nil {
		h.logger.Error("margin rule validation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"issues": issues})
}
