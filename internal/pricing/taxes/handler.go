package taxes

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

type taxRequest struct {
	SalePrice float64 `json:"sale_price" validate:"gte=0"`
	ChargeID  int64   `json:"charge_id" validate:"required,gt=0"`
}

// Tax handles POST /pricing/tax.
func (h *Handler) Tax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.TaxFor(r.Context(), req.SalePrice, req.ChargeID)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrBusinessRule) && !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("tax computation failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type taxBatchRequest struct {
	Items []taxRequest `json:"items" validate:"required,min=1,dive"`
}

// TaxBatch handles POST /pricing/tax-batch.
func (h *Handler) TaxBatch(w http.ResponseWriter, r *http.Request) {
	var req taxBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items := make([]BatchItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, BatchItem{SalePrice: item.SalePrice, ChargeID: item.ChargeID})
	}
	result, err := h.service.TaxForBatch(r.Context(), items)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrBusinessRule) && !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("batch tax computation failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type taxCodeRequest struct {
	Code string  `json:"code" validate:"required"`
	Name string  `json:"name" validate:"required"`
	Rate float64 `json:"rate" validate:"gte=0"`
}

// AddTaxCode handles POST /pricing/tax-codes.
func (h *Handler) AddTaxCode(w http.ResponseWriter, r *http.Request) {
	var req taxCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	created, err := h.service.AddTaxCode(r.Context(), TaxCode{Code: req.Code, Name: req.Name, Rate: req.Rate})
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrDuplicate) {
			h.logger.Error("add tax code failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// DeactivateTaxCode handles DELETE /pricing/tax-codes/{id}.
func (h *Handler) DeactivateTaxCode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	if err := h.service.SetTaxCodeActive(r.Context(), id, false); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("deactivate tax code failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": true})
}

// ListTaxCodes handles GET /pricing/tax-codes.
func (h *Handler) ListTaxCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ListTaxCodes(r.Context())
	if err != nil {
		h.logger.Error("list tax codes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tax_codes": codes})
}

// FlushCache handles POST /pricing/tax-cache/flush.
func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.FlushCache(r.Context()); err != nil {
		h.logger.Error("tax cache flush failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"flushed": true})
}
